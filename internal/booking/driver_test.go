package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/booklinehq/bookline/internal/automation"
)

// fakeElement is a scripted DOM node.
type fakeElement struct {
	attrs    map[string]string
	text     string
	children map[string]*fakeElement
	onClick  func()
	filled   string
}

func (e *fakeElement) Click(ctx context.Context) error {
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	return e.text, nil
}

func (e *fakeElement) Attribute(ctx context.Context, name string) (string, error) {
	return e.attrs[name], nil
}

func (e *fakeElement) Fill(ctx context.Context, value string) error {
	e.filled = value
	return nil
}

func (e *fakeElement) Find(ctx context.Context, selector string) (automation.Element, error) {
	child, ok := e.children[selector]
	if !ok {
		return nil, fmt.Errorf("%w: %s", automation.ErrNotFound, selector)
	}
	return child, nil
}

// fakeSession serves elements from a selector map and records interactions.
type fakeSession struct {
	mu sync.Mutex

	elements   map[string][]*fakeElement
	waitFails  map[string]bool
	monthLabel string
	waitTextOK bool

	navigated   []string
	screenshots []string
	closed      bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		elements:  make(map[string][]*fakeElement),
		waitFails: make(map[string]bool),
	}
}

func (s *fakeSession) add(selector string, el *fakeElement) {
	s.elements[selector] = append(s.elements[selector], el)
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigated = append(s.navigated, url)
	return nil
}

func (s *fakeSession) Element(ctx context.Context, selector string) (automation.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if selector == selMonthName && s.monthLabel != "" {
		return &fakeElement{text: s.monthLabel}, nil
	}
	els := s.elements[selector]
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", automation.ErrNotFound, selector)
	}
	return els[0], nil
}

func (s *fakeSession) Elements(ctx context.Context, selector string) ([]automation.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	els := s.elements[selector]
	out := make([]automation.Element, 0, len(els))
	for _, el := range els {
		out = append(out, el)
	}
	return out, nil
}

func (s *fakeSession) WaitElement(ctx context.Context, selector string, timeout time.Duration) (automation.Element, error) {
	s.mu.Lock()
	failed := s.waitFails[selector]
	s.mu.Unlock()
	if failed {
		return nil, fmt.Errorf("%w: %s", automation.ErrTimeout, selector)
	}
	return s.Element(ctx, selector)
}

func (s *fakeSession) WaitText(ctx context.Context, selector, want string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waitTextOK {
		return nil
	}
	if selector == selMonthName && strings.Contains(s.monthLabel, want) {
		return nil
	}
	return fmt.Errorf("%w: waiting for %q", automation.ErrTimeout, want)
}

func (s *fakeSession) Screenshot(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenshots = append(s.screenshots, path)
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakeCapability struct {
	session *fakeSession
	err     error
	opened  int
}

func (c *fakeCapability) Open(ctx context.Context) (automation.Session, error) {
	c.opened++
	if c.err != nil {
		return nil, c.err
	}
	return c.session, nil
}

func serviceCard(id, title, price string) *fakeElement {
	return &fakeElement{
		attrs: map[string]string{attrServiceID: id},
		children: map[string]*fakeElement{
			selServiceTitle: {text: title},
			selServicePrice: {attrs: map[string]string{attrPrice: price}},
		},
	}
}

func TestScrapeCatalogSkipsIncompleteCards(t *testing.T) {
	session := newFakeSession()
	session.add(selServiceCard, serviceCard("7", "Math tutoring", "30"))
	// Card without a price child must be skipped.
	session.add(selServiceCard, &fakeElement{
		attrs:    map[string]string{attrServiceID: "8"},
		children: map[string]*fakeElement{selServiceTitle: {text: "Broken"}},
	})
	session.add(selServiceCard, serviceCard("9", "Physics tutoring", "35.50"))

	driver := NewDriver(&fakeCapability{session: session}, "https://example.test/book", nil)
	entries, err := driver.ScrapeCatalog(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].ID != "7" || entries[1].ID != "9" {
		t.Fatalf("expected DOM order preserved, got %+v", entries)
	}
	if !session.closed {
		t.Fatal("expected session to be closed")
	}
}

func TestAvailableTimesPagesToTargetMonth(t *testing.T) {
	session := newFakeSession()
	session.monthLabel = "May 2024"
	session.add(serviceCardSelector("7"), &fakeElement{})
	session.add(selCalendarDays, &fakeElement{})
	session.add(selNextMonth, &fakeElement{onClick: func() {
		session.mu.Lock()
		session.monthLabel = "June 2024"
		session.mu.Unlock()
	}})
	session.add(dateCellSelector("2024-06-01"), &fakeElement{})
	session.add(selNextStepBtn, &fakeElement{})
	session.add(selTimeElement, &fakeElement{attrs: map[string]string{attrTime: "09:00"}})
	session.add(selTimeElement, &fakeElement{attrs: map[string]string{attrTime: "10:00"}})

	driver := NewDriver(&fakeCapability{session: session}, "https://example.test/book", nil)
	times, err := driver.AvailableTimes(context.Background(), "7", "2024-06-01")
	if err != nil {
		t.Fatal(err)
	}

	if len(times) != 2 || times[0] != "09:00" || times[1] != "10:00" {
		t.Fatalf("unexpected times: %v", times)
	}
	if !session.closed {
		t.Fatal("expected session to be closed")
	}
}

func TestAvailableTimesReturnsEmptyOnMissingElements(t *testing.T) {
	session := newFakeSession()
	// No service card registered: the lookup fails immediately.
	driver := NewDriver(&fakeCapability{session: session}, "https://example.test/book", nil)

	times, err := driver.AvailableTimes(context.Background(), "7", "2024-06-01")
	if err != nil {
		t.Fatalf("expected nil error for element failure, got %v", err)
	}
	if times == nil || len(times) != 0 {
		t.Fatalf("expected empty slice, got %v", times)
	}
	if !session.closed {
		t.Fatal("expected session to be closed even on failure")
	}
}

func TestAvailableTimesConnectionErrorPropagates(t *testing.T) {
	capability := &fakeCapability{err: fmt.Errorf("%w: refused", automation.ErrConnect)}
	driver := NewDriver(capability, "https://example.test/book", nil)

	_, err := driver.AvailableTimes(context.Background(), "7", "2024-06-01")
	if err == nil || !errors.Is(err, automation.ErrConnect) {
		t.Fatalf("expected connection error to propagate, got %v", err)
	}
}

func TestMonthPagingIsBounded(t *testing.T) {
	session := newFakeSession()
	session.monthLabel = "May 2024"
	session.waitTextOK = true // label keeps "updating" without ever matching
	session.add(serviceCardSelector("7"), &fakeElement{})
	session.add(selCalendarDays, &fakeElement{})
	session.add(selNextMonth, &fakeElement{})

	driver := NewDriver(&fakeCapability{session: session}, "https://example.test/book", nil)

	// Target month precedes the displayed month; forward paging can never
	// reach it, so the hop bound must terminate the loop.
	times, err := driver.AvailableTimes(context.Background(), "7", "2024-03-01")
	if err != nil {
		t.Fatalf("expected swallowed timeout, got %v", err)
	}
	if len(times) != 0 {
		t.Fatalf("expected no times, got %v", times)
	}
	if !session.closed {
		t.Fatal("expected session to be closed after paging timeout")
	}
}

type captureMetrics struct {
	mu       sync.Mutex
	outcomes []string
}

func (m *captureMetrics) ObserveSubmission(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func submitSession(t *testing.T) *fakeSession {
	t.Helper()
	session := newFakeSession()
	session.monthLabel = "June 2024"
	session.add(serviceCardSelector("7"), &fakeElement{})
	session.add(selCalendarDays, &fakeElement{})
	session.add(dateCellSelector("2024-06-01"), &fakeElement{})
	session.add(selNextStepBtn, &fakeElement{})
	session.add(selTimeElement, &fakeElement{attrs: map[string]string{attrTime: "09:00"}})
	session.add(timeSlotSelector("09:00"), &fakeElement{})
	session.add(selFirstNameInpt, &fakeElement{})
	session.add(selLastNameInpt, &fakeElement{})
	session.add(selEmailInpt, &fakeElement{})
	session.add(selPhoneInpt, &fakeElement{})
	session.add(selConfirmBtn, &fakeElement{})
	session.add(selFinishedCode, &fakeElement{})
	return session
}

func testRequest() Request {
	return Request{
		ServiceID: "7",
		Date:      "2024-06-01",
		Time:      "09:00 - 09:30",
		Profile: Profile{
			Name:    "Alice",
			Surname: "Smith",
			Email:   "a@b.com",
			Phone:   "+100000",
		},
	}
}

func TestSubmitHappyPath(t *testing.T) {
	session := submitSession(t)
	metrics := &captureMetrics{}
	driver := NewDriver(&fakeCapability{session: session}, "https://example.test/book", nil,
		WithSettleDelay(0),
		WithScreenshotDir(t.TempDir()),
		WithDriverMetrics(metrics),
	)

	if err := driver.Submit(context.Background(), testRequest()); err != nil {
		t.Fatal(err)
	}

	if !session.closed {
		t.Fatal("expected session to be closed")
	}
	if len(session.screenshots) != 2 {
		t.Fatalf("expected 2 diagnostic screenshots, got %d", len(session.screenshots))
	}
	if session.elements[selFirstNameInpt][0].filled != "Alice" {
		t.Errorf("first name not filled: %q", session.elements[selFirstNameInpt][0].filled)
	}
	if session.elements[selLastNameInpt][0].filled != "Smith" {
		t.Errorf("last name not filled")
	}
	if session.elements[selEmailInpt][0].filled != "a@b.com" {
		t.Errorf("email not filled")
	}
	if session.elements[selPhoneInpt][0].filled != "+100000" {
		t.Errorf("phone not filled")
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "verified" {
		t.Fatalf("unexpected outcomes: %v", metrics.outcomes)
	}
}

func TestSubmitSwallowsGateTimeout(t *testing.T) {
	session := submitSession(t)
	session.waitFails[selConfirmBtn] = true
	metrics := &captureMetrics{}
	driver := NewDriver(&fakeCapability{session: session}, "https://example.test/book", nil,
		WithSettleDelay(0),
		WithScreenshotDir(t.TempDir()),
		WithDriverMetrics(metrics),
	)

	if err := driver.Submit(context.Background(), testRequest()); err != nil {
		t.Fatalf("expected swallowed failure, got %v", err)
	}
	if !session.closed {
		t.Fatal("expected session to be closed after gate timeout")
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "failed" {
		t.Fatalf("unexpected outcomes: %v", metrics.outcomes)
	}
}

func TestSubmitConnectionErrorPropagates(t *testing.T) {
	metrics := &captureMetrics{}
	driver := NewDriver(&fakeCapability{err: fmt.Errorf("%w: refused", automation.ErrConnect)},
		"https://example.test/book", nil, WithDriverMetrics(metrics))

	err := driver.Submit(context.Background(), testRequest())
	if err == nil || !errors.Is(err, automation.ErrConnect) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "connect_error" {
		t.Fatalf("unexpected outcomes: %v", metrics.outcomes)
	}
}
