package booking

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/booklinehq/bookline/internal/automation"
	"github.com/booklinehq/bookline/internal/catalog"
	"github.com/booklinehq/bookline/pkg/logging"
)

// maxMonthHops bounds forward-only calendar paging. The widget only pages
// forward, so a target month behind the displayed one would otherwise never
// terminate.
const maxMonthHops = 12

// submitStep names the gates of the submission sequence for logging.
type submitStep string

const (
	stepStart           submitStep = "start"
	stepServiceSelected submitStep = "service_selected"
	stepCalendarReady   submitStep = "calendar_ready"
	stepMonthMatched    submitStep = "month_matched"
	stepDateSelected    submitStep = "date_selected"
	stepTimeSelected    submitStep = "time_selected"
	stepFormFilled      submitStep = "form_filled"
	stepSubmitted       submitStep = "submitted"
	stepConfirmClicked  submitStep = "confirm_clicked"
	stepVerified        submitStep = "verified"
)

// DriverMetrics receives workflow outcome counts.
type DriverMetrics interface {
	ObserveSubmission(outcome string)
}

// Driver executes the scraping and submission workflows. Every operation
// opens exactly one automation session and closes it on all exit paths.
type Driver struct {
	capability  automation.Capability
	pageURL     string
	scrapeWait  time.Duration
	submitWait  time.Duration
	settleDelay time.Duration
	shotDir     string
	logger      *logging.Logger
	metrics     DriverMetrics
}

// DriverOption customizes driver behavior.
type DriverOption func(*Driver)

// WithScrapeWait sets the bounded wait used by the read-only operations.
func WithScrapeWait(d time.Duration) DriverOption {
	return func(dr *Driver) {
		if d > 0 {
			dr.scrapeWait = d
		}
	}
}

// WithSubmitWait sets the bounded wait used by the submission sequence.
func WithSubmitWait(d time.Duration) DriverOption {
	return func(dr *Driver) {
		if d > 0 {
			dr.submitWait = d
		}
	}
}

// WithSettleDelay sets the fixed delay after the form submit click.
func WithSettleDelay(d time.Duration) DriverOption {
	return func(dr *Driver) {
		if d >= 0 {
			dr.settleDelay = d
		}
	}
}

// WithScreenshotDir sets where diagnostic screenshots are written.
func WithScreenshotDir(dir string) DriverOption {
	return func(dr *Driver) {
		dr.shotDir = dir
	}
}

// WithDriverMetrics attaches a metrics sink.
func WithDriverMetrics(m DriverMetrics) DriverOption {
	return func(dr *Driver) {
		dr.metrics = m
	}
}

// NewDriver creates a workflow driver for the given booking page.
func NewDriver(capability automation.Capability, pageURL string, logger *logging.Logger, opts ...DriverOption) *Driver {
	if capability == nil {
		panic("booking: capability cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	d := &Driver{
		capability:  capability,
		pageURL:     pageURL,
		scrapeWait:  10 * time.Second,
		submitWait:  120 * time.Second,
		settleDelay: 20 * time.Second,
		shotDir:     "/tmp/bookline",
		logger:      logger.Component("booking"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ScrapeCatalog reads every service card from the booking page. Cards missing
// a title or price element are skipped; order follows the DOM.
func (d *Driver) ScrapeCatalog(ctx context.Context) ([]catalog.Entry, error) {
	session, err := d.capability.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking: open session: %w", err)
	}
	defer session.Close()

	if err := session.Navigate(ctx, d.pageURL); err != nil {
		return nil, err
	}

	cards, err := session.Elements(ctx, selServiceCard)
	if err != nil {
		return nil, fmt.Errorf("booking: locate service cards: %w", err)
	}
	d.logger.Info("found service cards", "count", len(cards))

	entries := make([]catalog.Entry, 0, len(cards))
	for _, card := range cards {
		id, err := card.Attribute(ctx, attrServiceID)
		if err != nil {
			continue
		}
		titleEl, err := card.Find(ctx, selServiceTitle)
		if err != nil {
			continue
		}
		priceEl, err := card.Find(ctx, selServicePrice)
		if err != nil {
			continue
		}
		title, err := titleEl.Text(ctx)
		if err != nil {
			continue
		}
		price, err := priceEl.Attribute(ctx, attrPrice)
		if err != nil {
			continue
		}
		entries = append(entries, catalog.Entry{ID: id, Title: title, Price: price})
		d.logger.Debug("parsed service", "id", id, "title", title, "price", price)
	}

	return entries, nil
}

// AvailableTimes returns the free slots for a service on a date, in DOM
// order. Element and timeout failures after the session opens yield an empty
// list rather than an error; only connection failures propagate.
func (d *Driver) AvailableTimes(ctx context.Context, serviceID, date string) ([]string, error) {
	session, err := d.capability.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking: open session: %w", err)
	}
	defer session.Close()

	times, err := d.collectTimes(ctx, session, serviceID, date)
	if err != nil {
		if isAutomationMiss(err) {
			d.logger.Error("available-times lookup failed", "service_id", serviceID, "date", date, "error", err)
			return []string{}, nil
		}
		return nil, err
	}
	return times, nil
}

func (d *Driver) collectTimes(ctx context.Context, session automation.Session, serviceID, date string) ([]string, error) {
	if err := session.Navigate(ctx, d.pageURL); err != nil {
		return nil, err
	}

	card, err := session.Element(ctx, serviceCardSelector(serviceID))
	if err != nil {
		return nil, err
	}
	if err := card.Click(ctx); err != nil {
		return nil, err
	}

	if _, err := session.WaitElement(ctx, selCalendarDays, d.scrapeWait); err != nil {
		return nil, err
	}

	if err := d.pageToMonth(ctx, session, date, d.scrapeWait); err != nil {
		return nil, err
	}

	dateCell, err := session.Element(ctx, dateCellSelector(date))
	if err != nil {
		return nil, err
	}
	if err := dateCell.Click(ctx); err != nil {
		return nil, err
	}
	d.logger.Debug("clicked date", "date", date)

	if _, err := session.WaitElement(ctx, selNextStepBtn, d.scrapeWait); err != nil {
		return nil, err
	}
	if _, err := session.WaitElement(ctx, selTimeElement, d.scrapeWait); err != nil {
		return nil, err
	}

	slots, err := session.Elements(ctx, selTimeElement)
	if err != nil {
		return nil, err
	}

	times := make([]string, 0, len(slots))
	for _, slot := range slots {
		value, err := slot.Attribute(ctx, attrTime)
		if err != nil {
			return nil, err
		}
		times = append(times, value)
	}
	return times, nil
}

// Submit runs the full reservation sequence. Element and timeout failures are
// logged and swallowed (success is the absence of an error, there is no
// positive acknowledgement); the session is released on every exit path.
func (d *Driver) Submit(ctx context.Context, req Request) error {
	session, err := d.capability.Open(ctx)
	if err != nil {
		d.observe("connect_error")
		return fmt.Errorf("booking: open session: %w", err)
	}
	defer session.Close()

	step, err := d.runSubmission(ctx, session, req)
	if err != nil {
		if isAutomationMiss(err) {
			d.logger.Error("submission failed",
				"step", string(step),
				"service_id", req.ServiceID,
				"date", req.Date,
				"time", req.Time,
				"error", err,
			)
			d.observe("failed")
			return nil
		}
		d.observe("error")
		return err
	}

	d.logger.Info("booking submitted", "service_id", req.ServiceID, "date", req.Date, "time", req.Time)
	d.observe("verified")
	return nil
}

func (d *Driver) runSubmission(ctx context.Context, session automation.Session, req Request) (submitStep, error) {
	step := stepStart
	if err := session.Navigate(ctx, d.pageURL); err != nil {
		return step, err
	}

	card, err := session.WaitElement(ctx, serviceCardSelector(req.ServiceID), d.submitWait)
	if err != nil {
		return step, err
	}
	if err := card.Click(ctx); err != nil {
		return step, err
	}
	step = stepServiceSelected

	if _, err := session.WaitElement(ctx, selCalendarDays, d.submitWait); err != nil {
		return step, err
	}
	step = stepCalendarReady

	if err := d.pageToMonth(ctx, session, req.Date, d.submitWait); err != nil {
		return step, err
	}
	step = stepMonthMatched

	dateCell, err := session.WaitElement(ctx, dateCellSelector(req.Date), d.submitWait)
	if err != nil {
		return step, err
	}
	if err := dateCell.Click(ctx); err != nil {
		return step, err
	}
	step = stepDateSelected

	if err := d.clickNextStep(ctx, session); err != nil {
		return step, err
	}

	if _, err := session.WaitElement(ctx, selTimeElement, d.submitWait); err != nil {
		return step, err
	}

	// The stored time may be a range like "09:00 - 09:30"; the slot's
	// data-time attribute carries only the start.
	slotTime := strings.SplitN(req.Time, " - ", 2)[0]
	slot, err := session.WaitElement(ctx, timeSlotSelector(slotTime), d.submitWait)
	if err != nil {
		return step, err
	}
	if err := slot.Click(ctx); err != nil {
		return step, err
	}
	step = stepTimeSelected

	if err := d.clickNextStep(ctx, session); err != nil {
		return step, err
	}

	if err := d.fillForm(ctx, session, req.Profile); err != nil {
		return step, err
	}
	step = stepFormFilled

	if err := d.clickNextStep(ctx, session); err != nil {
		return step, err
	}
	step = stepSubmitted

	// Fixed settle delay: the page performs its own submission round-trip
	// with no observable predicate, so this is a lower bound, not a wait.
	time.Sleep(d.settleDelay)

	if _, err := session.WaitElement(ctx, selNextStepBtn, d.submitWait); err != nil {
		return step, err
	}
	d.screenshot(ctx, session, "after_form")

	confirm, err := session.WaitElement(ctx, selConfirmBtn, d.submitWait)
	if err != nil {
		return step, err
	}
	if err := confirm.Click(ctx); err != nil {
		return step, err
	}
	step = stepConfirmClicked
	d.screenshot(ctx, session, "after_confirm")

	if _, err := session.WaitElement(ctx, selFinishedCode, d.submitWait); err != nil {
		return step, err
	}
	return stepVerified, nil
}

// pageToMonth advances the calendar until its label shows the month of date.
// Paging is forward-only and bounded by maxMonthHops.
func (d *Driver) pageToMonth(ctx context.Context, session automation.Session, date string, wait time.Duration) error {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return fmt.Errorf("booking: bad date %q: %w", date, err)
	}
	target := parsed.Format("January 2006")

	for hop := 0; ; hop++ {
		monthEl, err := session.Element(ctx, selMonthName)
		if err != nil {
			return err
		}
		current, err := monthEl.Text(ctx)
		if err != nil {
			return err
		}
		if strings.TrimSpace(current) == target {
			return nil
		}
		if hop >= maxMonthHops {
			return fmt.Errorf("%w: month %q unreachable after %d hops (displayed %q)",
				automation.ErrTimeout, target, maxMonthHops, current)
		}

		next, err := session.Element(ctx, selNextMonth)
		if err != nil {
			return err
		}
		if err := next.Click(ctx); err != nil {
			return err
		}
		if err := session.WaitText(ctx, selMonthName, target, wait); err != nil {
			return err
		}
		d.logger.Debug("paged calendar forward", "target", target)
	}
}

func (d *Driver) clickNextStep(ctx context.Context, session automation.Session) error {
	next, err := session.WaitElement(ctx, selNextStepBtn, d.submitWait)
	if err != nil {
		return err
	}
	return next.Click(ctx)
}

func (d *Driver) fillForm(ctx context.Context, session automation.Session, profile Profile) error {
	first, err := session.WaitElement(ctx, selFirstNameInpt, d.submitWait)
	if err != nil {
		return err
	}

	fields := []struct {
		selector string
		value    string
		el       automation.Element
	}{
		{selFirstNameInpt, profile.Name, first},
		{selLastNameInpt, profile.Surname, nil},
		{selEmailInpt, profile.Email, nil},
		{selPhoneInpt, profile.Phone, nil},
	}
	for _, f := range fields {
		el := f.el
		if el == nil {
			el, err = session.Element(ctx, f.selector)
			if err != nil {
				return err
			}
		}
		if err := el.Fill(ctx, f.value); err != nil {
			return err
		}
	}
	d.logger.Debug("form filled")
	return nil
}

func (d *Driver) screenshot(ctx context.Context, session automation.Session, label string) {
	path := filepath.Join(d.shotDir, fmt.Sprintf("screenshot_%s_%d.png", label, time.Now().UnixNano()))
	if err := session.Screenshot(ctx, path); err != nil {
		d.logger.Warn("screenshot failed", "label", label, "error", err)
		return
	}
	d.logger.Info("screenshot saved", "path", path)
}

func (d *Driver) observe(outcome string) {
	if d.metrics != nil {
		d.metrics.ObserveSubmission(outcome)
	}
}

// isAutomationMiss reports whether err is a recoverable workflow failure
// (element missing or a gate timing out) as opposed to a broken session.
func isAutomationMiss(err error) bool {
	return errors.Is(err, automation.ErrNotFound) ||
		errors.Is(err, automation.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}
