package domain

// ContentKind discriminates what a provider is asked to classify.
type ContentKind string

const (
	KindText        ContentKind = "text"
	KindImageURL    ContentKind = "image_url"
	KindImageBase64 ContentKind = "image_base64"
)

// Source carries opaque adapter metadata about where a content item came from.
type Source struct {
	Platform string
	SenderID string
	ChatID   string
}

// ContentItem is one unit submitted for moderation: a text body or a single
// image attachment. Short-lived, consumed by one Evaluate call.
type ContentItem struct {
	Kind    ContentKind
	Payload string
	Source  Source
}
