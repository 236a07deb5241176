// Package session persists one conversation record per chat identifier.
package session

import "context"

// UserData is the profile blob accumulated during a conversation, persisted
// as a single JSON object per chat.
type UserData struct {
	Name      string `json:"name,omitempty"`
	Surname   string `json:"surname,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`
	ServiceID string `json:"service_id,omitempty"`
}

// Record is the full per-chat conversation state. The zero value is a fresh
// idle session.
type Record struct {
	State               string   `json:"state"`
	LastSelectedService string   `json:"last_selected_service,omitempty"`
	LastSelectedDate    string   `json:"last_selected_date,omitempty"`
	LastSelectedTime    string   `json:"last_selected_time,omitempty"`
	UserData            UserData `json:"user_data"`
}

// Store persists conversation records keyed by chat id. Writes are atomic
// per key; Update serializes read-modify-write cycles for the same chat so
// concurrent events never interleave their reads and writes.
type Store interface {
	// Get returns the record for the chat, or a zero Record when absent.
	Get(ctx context.Context, chatID int64) (Record, error)
	// Set overwrites the record for the chat.
	Set(ctx context.Context, chatID int64, rec Record) error
	// Update applies fn to the current record under a per-key lock and
	// persists the result. fn returning an error aborts the write.
	Update(ctx context.Context, chatID int64, fn func(*Record) error) error
}

// SetLastSelectedService stores the service id independently of the profile blob.
func SetLastSelectedService(ctx context.Context, s Store, chatID int64, serviceID string) error {
	return s.Update(ctx, chatID, func(rec *Record) error {
		rec.LastSelectedService = serviceID
		return nil
	})
}

// SetLastSelectedDate stores the selected date independently of the profile blob.
func SetLastSelectedDate(ctx context.Context, s Store, chatID int64, date string) error {
	return s.Update(ctx, chatID, func(rec *Record) error {
		rec.LastSelectedDate = date
		return nil
	})
}

// SetLastSelectedTime stores the selected time independently of the profile blob.
func SetLastSelectedTime(ctx context.Context, s Store, chatID int64, t string) error {
	return s.Update(ctx, chatID, func(rec *Record) error {
		rec.LastSelectedTime = t
		return nil
	})
}
