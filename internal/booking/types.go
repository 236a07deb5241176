// Package booking drives the multi-step reservation workflow against the
// remote booking page and runs submissions through a bounded worker queue.
package booking

// Profile holds the customer details filled into the booking form.
type Profile struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// Request describes one booking submission. It is constructed only when the
// service, date, time and profile are all known, and is passed by value so
// the workflow never shares state with the conversation session.
type Request struct {
	ServiceID string  `json:"service_id"`
	Date      string  `json:"date"` // YYYY-MM-DD
	Time      string  `json:"time"` // "HH:MM" or "HH:MM - HH:MM"
	Profile   Profile `json:"profile"`
}
