// Package conversation implements the per-chat booking dialogue: a strict
// step ordering from service selection through profile collection to the
// confirmation callback.
package conversation

// Conversation states, persisted as strings in the session record. A chat
// with no record is idle.
const (
	StateIdle                     = ""
	StateAwaitingServiceSelection = "awaiting_service_selection"
	StateAwaitingDate             = "awaiting_date"
	StateAwaitingTime             = "awaiting_time"
	StateAwaitingName             = "awaiting_name"
	StateAwaitingSurname          = "awaiting_surname"
	StateAwaitingEmail            = "awaiting_email"
	StateAwaitingPhone            = "awaiting_phone"
	StateConfirmationPending      = "confirmation_pending"
)
