package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/booklinehq/bookline/pkg/logging"
)

// RodCapability opens sessions against a Chromium instance over the DevTools
// protocol. With an empty control URL it launches a local headless browser.
type RodCapability struct {
	controlURL string
	logger     *logging.Logger
}

// NewRodCapability creates a capability bound to the given DevTools websocket
// URL. Pass an empty URL to launch a local headless Chromium per session.
func NewRodCapability(controlURL string, logger *logging.Logger) *RodCapability {
	if logger == nil {
		logger = logging.Default()
	}
	return &RodCapability{
		controlURL: controlURL,
		logger:     logger.Component("automation"),
	}
}

// Open connects a fresh browser and creates one page. The returned session
// owns both; Close tears the whole browser connection down.
func (c *RodCapability) Open(ctx context.Context) (Session, error) {
	controlURL := c.controlURL
	var l *launcher.Launcher
	if controlURL == "" {
		l = launcher.New().Headless(true).NoSandbox(true)
		launched, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("%w: launch chromium: %v", ErrConnect, err)
		}
		controlURL = launched
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		if l != nil {
			l.Kill()
		}
		return nil, fmt.Errorf("%w: create page: %v", ErrConnect, err)
	}

	c.logger.Debug("browser session opened", "control_url", controlURL)
	return &rodSession{browser: browser, page: page, launcher: l, logger: c.logger}, nil
}

type rodSession struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	logger   *logging.Logger
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("automation: navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("automation: wait load %s: %w", url, err)
	}
	return nil
}

func (s *rodSession) Element(ctx context.Context, selector string) (Element, error) {
	page := s.page.Context(ctx)
	has, el, err := page.Has(selector)
	if err != nil {
		return nil, mapRodErr(err)
	}
	if !has {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return &rodElement{el: el}, nil
}

func (s *rodSession) Elements(ctx context.Context, selector string) ([]Element, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, mapRodErr(err)
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out, nil
}

func (s *rodSession) WaitElement(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	el, err := s.page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		return nil, mapRodErr(err)
	}
	return &rodElement{el: el.CancelTimeout()}, nil
}

func (s *rodSession) WaitText(ctx context.Context, selector, want string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		el, err := s.Element(ctx, selector)
		if err == nil {
			text, textErr := el.Text(ctx)
			if textErr == nil && strings.Contains(text, want) {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: waiting for %q in %s", ErrTimeout, want, selector)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		case <-time.After(250 * time.Millisecond):
		}
	}
}

func (s *rodSession) Screenshot(ctx context.Context, path string) error {
	data, err := s.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return fmt.Errorf("automation: screenshot: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("automation: screenshot dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("automation: write screenshot: %w", err)
	}
	s.logger.Debug("screenshot captured", "path", path)
	return nil
}

func (s *rodSession) Close() error {
	err := s.browser.Close()
	if s.launcher != nil {
		s.launcher.Kill()
	}
	if err != nil {
		return fmt.Errorf("automation: close browser: %w", err)
	}
	return nil
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Click(ctx context.Context) error {
	if err := e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return mapRodErr(err)
	}
	return nil
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	text, err := e.el.Context(ctx).Text()
	if err != nil {
		return "", mapRodErr(err)
	}
	return text, nil
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, error) {
	val, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", mapRodErr(err)
	}
	if val == nil {
		return "", nil
	}
	return *val, nil
}

func (e *rodElement) Find(ctx context.Context, selector string) (Element, error) {
	has, el, err := e.el.Context(ctx).Has(selector)
	if err != nil {
		return nil, mapRodErr(err)
	}
	if !has {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return &rodElement{el: el}, nil
}

func (e *rodElement) Fill(ctx context.Context, value string) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return mapRodErr(err)
	}
	if err := el.Input(value); err != nil {
		return mapRodErr(err)
	}
	return nil
}

// mapRodErr folds rod's error zoo into the package sentinels so callers can
// branch on errors.Is without importing rod.
func mapRodErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, &rod.ElementNotFoundError{}):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return err
	}
}
