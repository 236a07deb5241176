package conversation

import (
	"fmt"
	"net/url"
	"strings"
)

// Callback payload prefixes, matched literally.
const (
	serviceCallbackPrefix = "service_"
	timeCallbackPrefix    = "time_"
	confirmCallbackPrefix = "confirm_booking_"
)

// EncodeServiceCallback builds the payload for a service selection button.
func EncodeServiceCallback(serviceID string) string {
	return serviceCallbackPrefix + serviceID
}

// EncodeTimeCallback builds the payload for a time slot button. Telegram
// callback data cannot carry spaces reliably, so they become underscores.
func EncodeTimeCallback(slot string) string {
	return timeCallbackPrefix + strings.ReplaceAll(slot, " ", "_")
}

// EncodeConfirmCallback builds the self-describing confirmation payload:
// the service id, the URL-encoded time and the date, underscore-joined, so
// the submission can run from the payload alone without consulting the
// session.
func EncodeConfirmCallback(serviceID, slot, date string) string {
	return confirmCallbackPrefix + serviceID + "_" + url.QueryEscape(slot) + "_" + date
}

// DecodeConfirmCallback reverses EncodeConfirmCallback. It splits on the
// first two separators only and URL-decodes just the time component.
//
// Known limitation: url.QueryEscape leaves "_" alone, so a slot value that
// itself contains underscores (e.g. one that already went through
// EncodeTimeCallback's space substitution) shifts the split and corrupts the
// slot and date fields. Scraped data-time values carry no spaces or
// underscores in practice, and changing the encoding would break payloads
// already sitting in chat keyboards, so the format stays as is.
func DecodeConfirmCallback(payload string) (serviceID, slot, date string, err error) {
	raw, ok := strings.CutPrefix(payload, confirmCallbackPrefix)
	if !ok {
		return "", "", "", fmt.Errorf("conversation: not a confirmation payload: %q", payload)
	}

	parts := strings.SplitN(raw, "_", 3)
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("conversation: malformed confirmation payload: %q", payload)
	}

	slot, err = url.QueryUnescape(parts[1])
	if err != nil {
		return "", "", "", fmt.Errorf("conversation: bad time encoding in %q: %w", payload, err)
	}
	return parts[0], slot, parts[2], nil
}
