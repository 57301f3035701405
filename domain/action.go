package domain

import "time"

// Action is the abstract enforcement instruction handed to the chat adapter.
type Action string

const (
	ActionIgnore Action = "ignore"
	ActionWarn   Action = "warn"
	ActionDelete Action = "delete"
	ActionMute   Action = "mute"
	ActionKick   Action = "kick"
	ActionBan    Action = "ban"
)

// ValidAction reports whether a belongs to the closed enum.
func ValidAction(a Action) bool {
	switch a {
	case ActionIgnore, ActionWarn, ActionDelete, ActionMute, ActionKick, ActionBan:
		return true
	}
	return false
}

// ActionRequest is a stateless enforcement instruction.
// MuteDuration is only meaningful when Action is ActionMute.
type ActionRequest struct {
	Action       Action
	MuteDuration time.Duration
}

// ModerationRecord pairs a verdict with its origin and the chosen action.
// This is what sinks persist and what the adapter receives.
type ModerationRecord struct {
	Item    ContentItem
	Verdict Verdict
	Action  ActionRequest
}
