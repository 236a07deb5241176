package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/booklinehq/bookline/internal/conversation"
	"github.com/booklinehq/bookline/pkg/logging"
)

type recordingDialogue struct {
	chatIDs []int64
	events  []conversation.Event
}

func (d *recordingDialogue) Handle(_ context.Context, chatID int64, ev conversation.Event) error {
	d.chatIDs = append(d.chatIDs, chatID)
	d.events = append(d.events, ev)
	return nil
}

type recordingAnswerer struct {
	answered []string
}

func (a *recordingAnswerer) AnswerCallbackQuery(_ context.Context, id string) error {
	a.answered = append(a.answered, id)
	return nil
}

func post(t *testing.T, h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookRoutesMessage(t *testing.T) {
	dialogue := &recordingDialogue{}
	h := NewWebhookHandler(dialogue, logging.New("error"))

	rec := post(t, h, `{"update_id":1,"message":{"message_id":10,"chat":{"id":42},"text":"/start"}}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(dialogue.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(dialogue.events))
	}
	if dialogue.chatIDs[0] != 42 {
		t.Fatalf("chat id = %d", dialogue.chatIDs[0])
	}
	if dialogue.events[0].Text != "/start" || dialogue.events[0].CallbackData != "" {
		t.Fatalf("event = %+v", dialogue.events[0])
	}
}

func TestWebhookRoutesCallbackAndAnswersIt(t *testing.T) {
	dialogue := &recordingDialogue{}
	answerer := &recordingAnswerer{}
	h := NewWebhookHandler(dialogue, logging.New("error"), WithCallbackAnswerer(answerer))

	body := `{"update_id":2,"callback_query":{"id":"cbq-1","data":"service_7","message":{"message_id":11,"chat":{"id":42}}}}`
	rec := post(t, h, body, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(dialogue.events) != 1 || dialogue.events[0].CallbackData != "service_7" {
		t.Fatalf("events = %+v", dialogue.events)
	}
	if len(answerer.answered) != 1 || answerer.answered[0] != "cbq-1" {
		t.Fatalf("answered = %+v", answerer.answered)
	}
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	dialogue := &recordingDialogue{}
	h := NewWebhookHandler(dialogue, logging.New("error"), WithSecretToken("expected"))

	rec := post(t, h, `{"update_id":1}`, map[string]string{secretTokenHeader: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(dialogue.events) != 0 {
		t.Fatal("event must not reach the dialogue")
	}

	rec = post(t, h, `{"update_id":1,"message":{"chat":{"id":1},"text":"hi"}}`, map[string]string{secretTokenHeader: "expected"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status with correct secret = %d", rec.Code)
	}
}

func TestWebhookIgnoresUpdateWithoutContent(t *testing.T) {
	dialogue := &recordingDialogue{}
	h := NewWebhookHandler(dialogue, logging.New("error"))

	rec := post(t, h, `{"update_id":3}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(dialogue.events) != 0 {
		t.Fatalf("unexpected events: %+v", dialogue.events)
	}
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	dialogue := &recordingDialogue{}
	h := NewWebhookHandler(dialogue, logging.New("error"))

	rec := post(t, h, `{not json`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
