package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/booklinehq/bookline/internal/booking"
	"github.com/booklinehq/bookline/internal/catalog"
	"github.com/booklinehq/bookline/internal/session"
	"github.com/booklinehq/bookline/pkg/logging"
)

// Button is a single inline keyboard button.
type Button struct {
	Label        string
	CallbackData string
}

// Messenger delivers replies to a chat.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendInlineKeyboard(ctx context.Context, chatID int64, text string, rows [][]Button) error
}

// CatalogProvider serves the bookable service list.
type CatalogProvider interface {
	Get(ctx context.Context, forceReload bool) (catalog.Catalog, error)
}

// TimesProvider looks up free slots for a service on a date.
type TimesProvider interface {
	AvailableTimes(ctx context.Context, serviceID, date string) ([]string, error)
}

// SubmitPublisher hands a confirmed booking off for asynchronous submission.
type SubmitPublisher interface {
	EnqueueSubmit(ctx context.Context, chatID int64, req booking.Request) error
}

var (
	dateInputRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeInputRe = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// Event is one inbound update for a chat: plain text or an inline button
// callback. CallbackData takes precedence when both are set.
type Event struct {
	Text         string
	CallbackData string
}

func (e Event) isCallback() bool { return e.CallbackData != "" }

// Service drives the booking dialogue. Handle runs each event inside the
// session store's per-chat update lock, so events for one chat are applied
// strictly in order while chats stay independent.
type Service struct {
	sessions  session.Store
	catalog   CatalogProvider
	times     TimesProvider
	publisher SubmitPublisher
	messenger Messenger
	logger    *logging.Logger
}

// NewService wires the dialogue against its collaborators.
func NewService(sessions session.Store, cat CatalogProvider, times TimesProvider, publisher SubmitPublisher, messenger Messenger, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		sessions:  sessions,
		catalog:   cat,
		times:     times,
		publisher: publisher,
		messenger: messenger,
		logger:    logger.Component("conversation"),
	}
}

// Handle applies one event to the chat's conversation.
func (s *Service) Handle(ctx context.Context, chatID int64, ev Event) error {
	return s.sessions.Update(ctx, chatID, func(rec *session.Record) error {
		if ev.isCallback() {
			return s.handleCallback(ctx, chatID, rec, ev.CallbackData)
		}
		return s.handleText(ctx, chatID, rec, strings.TrimSpace(ev.Text))
	})
}

func (s *Service) handleText(ctx context.Context, chatID int64, rec *session.Record, text string) error {
	// /start restarts the dialogue from any state.
	if text == "/start" {
		s.send(ctx, chatID, msgGreeting)
		s.showServices(ctx, chatID)
		rec.State = StateAwaitingServiceSelection
		return nil
	}

	switch rec.State {
	case StateAwaitingServiceSelection:
		if id, ok := strings.CutPrefix(text, serviceCallbackPrefix); ok {
			s.selectService(ctx, chatID, rec, id)
			return nil
		}

	case StateAwaitingDate:
		if dateInputRe.MatchString(text) {
			s.selectDate(ctx, chatID, rec, text)
			return nil
		}

	case StateAwaitingTime:
		if timeInputRe.MatchString(text) {
			rec.LastSelectedTime = text
			rec.State = StateAwaitingName
			s.send(ctx, chatID, msgAskName)
			return nil
		}

	case StateAwaitingName:
		rec.UserData.Name = text
		rec.State = StateAwaitingSurname
		s.send(ctx, chatID, msgAskSurname)
		return nil

	case StateAwaitingSurname:
		rec.UserData.Surname = text
		rec.State = StateAwaitingEmail
		s.send(ctx, chatID, msgAskEmail)
		return nil

	case StateAwaitingEmail:
		rec.UserData.Email = text
		rec.State = StateAwaitingPhone
		s.send(ctx, chatID, msgAskPhone)
		return nil

	case StateAwaitingPhone:
		rec.UserData.Phone = text
		s.finishProfile(ctx, chatID, rec)
		return nil
	}

	s.send(ctx, chatID, msgNotUnderstood)
	return nil
}

func (s *Service) handleCallback(ctx context.Context, chatID int64, rec *session.Record, data string) error {
	if id, ok := strings.CutPrefix(data, serviceCallbackPrefix); ok {
		s.selectService(ctx, chatID, rec, id)
		return nil
	}

	if slot, ok := strings.CutPrefix(data, timeCallbackPrefix); ok {
		rec.LastSelectedTime = slot
		rec.State = StateAwaitingName
		s.send(ctx, chatID, fmt.Sprintf(msgTimeChosenFmt, slot))
		return nil
	}

	if strings.HasPrefix(data, confirmCallbackPrefix) {
		return s.confirmBooking(ctx, chatID, rec, data)
	}

	s.send(ctx, chatID, msgNotUnderstood)
	return nil
}

func (s *Service) selectService(ctx context.Context, chatID int64, rec *session.Record, serviceID string) {
	rec.LastSelectedService = serviceID
	rec.State = StateAwaitingDate
	s.send(ctx, chatID, msgAskDate)
}

func (s *Service) selectDate(ctx context.Context, chatID int64, rec *session.Record, date string) {
	rec.LastSelectedDate = date
	if rec.LastSelectedService == "" {
		s.send(ctx, chatID, msgChooseServiceTip)
		return
	}

	slots, err := s.times.AvailableTimes(ctx, rec.LastSelectedService, date)
	if err != nil {
		s.logger.Error("availability lookup failed", "chat_id", chatID, "service_id", rec.LastSelectedService, "date", date, "error", err)
		slots = nil
	}

	if len(slots) == 0 {
		s.send(ctx, chatID, msgNoTimes)
	} else {
		rows := make([][]Button, 0, len(slots))
		for _, slot := range slots {
			rows = append(rows, []Button{{Label: slot, CallbackData: EncodeTimeCallback(slot)}})
		}
		s.sendKeyboard(ctx, chatID, msgTimesHeader, rows)
	}
	rec.State = StateAwaitingTime
}

func (s *Service) finishProfile(ctx context.Context, chatID int64, rec *session.Record) {
	if rec.LastSelectedService == "" || rec.LastSelectedDate == "" || rec.LastSelectedTime == "" {
		s.send(ctx, chatID, msgIncompleteDetails)
		return
	}

	rec.UserData.ServiceID = rec.LastSelectedService
	rec.UserData.Date = rec.LastSelectedDate
	rec.UserData.Time = rec.LastSelectedTime
	rec.State = StateConfirmationPending

	summary := fmt.Sprintf(
		"Your details have been saved.\nSelected service: %s\nDate: %s\nTime: %s\nName: %s\nSurname: %s\nEmail: %s\nPhone: %s",
		rec.UserData.ServiceID, rec.UserData.Date, rec.UserData.Time,
		rec.UserData.Name, rec.UserData.Surname, rec.UserData.Email, rec.UserData.Phone,
	)
	confirm := EncodeConfirmCallback(rec.LastSelectedService, rec.LastSelectedTime, rec.LastSelectedDate)
	s.sendKeyboard(ctx, chatID, summary, [][]Button{{{Label: msgConfirmButton, CallbackData: confirm}}})
}

// confirmBooking enqueues the submission and acknowledges immediately. The
// automation runs later in a worker, so the acknowledgement is optimistic;
// a failed submission is only visible in logs and metrics.
func (s *Service) confirmBooking(ctx context.Context, chatID int64, rec *session.Record, data string) error {
	serviceID, slot, date, err := DecodeConfirmCallback(data)
	if err != nil {
		s.logger.Warn("undecodable confirmation payload", "chat_id", chatID, "error", err)
		s.send(ctx, chatID, msgNotUnderstood)
		return nil
	}

	// The payload is authoritative over whatever the session holds.
	rec.UserData.ServiceID = serviceID
	rec.UserData.Date = date
	rec.UserData.Time = slot

	req := booking.Request{
		ServiceID: serviceID,
		Date:      date,
		Time:      slot,
		Profile: booking.Profile{
			Name:    rec.UserData.Name,
			Surname: rec.UserData.Surname,
			Email:   rec.UserData.Email,
			Phone:   rec.UserData.Phone,
		},
	}
	if err := s.publisher.EnqueueSubmit(ctx, chatID, req); err != nil {
		return fmt.Errorf("conversation: confirm booking for chat %d: %w", chatID, err)
	}

	s.send(ctx, chatID, msgBookingCompleted)
	return nil
}

func (s *Service) showServices(ctx context.Context, chatID int64) {
	cat, err := s.catalog.Get(ctx, false)
	if err != nil {
		s.logger.Error("failed to load service catalog", "chat_id", chatID, "error", err)
		s.send(ctx, chatID, msgNoServices)
		return
	}
	if len(cat.Entries) == 0 {
		s.send(ctx, chatID, msgNoServices)
		return
	}

	rows := make([][]Button, 0, len(cat.Entries))
	for _, entry := range cat.Entries {
		label := fmt.Sprintf("%s - %s AZN", entry.Title, catalog.FormatPrice(entry.Price))
		rows = append(rows, []Button{{Label: label, CallbackData: EncodeServiceCallback(entry.ID)}})
	}
	s.sendKeyboard(ctx, chatID, msgServicesHeader, rows)
}

// send failures must not abort the session update, otherwise a transient
// Telegram outage would wedge the dialogue. They are logged and dropped.
func (s *Service) send(ctx context.Context, chatID int64, text string) {
	if err := s.messenger.SendMessage(ctx, chatID, text); err != nil {
		s.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (s *Service) sendKeyboard(ctx context.Context, chatID int64, text string, rows [][]Button) {
	if err := s.messenger.SendInlineKeyboard(ctx, chatID, text, rows); err != nil {
		s.logger.Error("failed to send keyboard", "chat_id", chatID, "error", err)
	}
}
