// Package catalog holds the scraped service list and its TTL cache.
package catalog

import (
	"strconv"
	"strings"
	"time"
)

// Entry is one bookable service as scraped from the booking page.
type Entry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price string `json:"price"`
}

// Catalog is an immutable snapshot of the scraped service list.
type Catalog struct {
	Entries   []Entry
	FetchedAt time.Time
}

// FindByID returns the entry with the given id, or false when absent.
func (c Catalog) FindByID(id string) (Entry, bool) {
	for _, e := range c.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// FormatPrice renders a scraped price for display: two decimals with a
// trailing ".00" stripped, so "25.5" -> "25.50" and "30" -> "30".
func FormatPrice(price string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
	if err != nil {
		return price
	}
	formatted := strconv.FormatFloat(v, 'f', 2, 64)
	return strings.TrimSuffix(formatted, ".00")
}
