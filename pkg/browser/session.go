package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// run dispatches a command to its implementation. The caller holds the
// session's command lock and has already resolved the timeout (ms).
func (s *Session) run(cmd Command, timeout float64) (*Result, error) {
	switch cmd.Kind {
	case KindNavigate:
		return s.navigate(cmd, timeout)
	case KindEvaluate:
		return s.evaluate(cmd)
	case KindScreenshot:
		return s.screenshot(cmd, timeout)
	case KindContent:
		return s.content(cmd, timeout)
	case KindClick:
		return s.click(cmd, timeout)
	case KindFill:
		return s.fill(cmd, timeout)
	case KindWaitFor:
		return s.waitFor(cmd, timeout)
	default:
		return nil, &ScriptError{Detail: fmt.Sprintf("unknown command kind %q", cmd.Kind)}
	}
}

func (s *Session) navigate(cmd Command, timeout float64) (*Result, error) {
	if cmd.URL == "" {
		return nil, &NavigationError{URL: cmd.URL, Err: fmt.Errorf("url is required")}
	}

	opts := playwright.PageGotoOptions{Timeout: &timeout}
	if cmd.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(cmd.WaitUntil)
		opts.WaitUntil = &waitUntil
	}

	if _, err := s.Page.Goto(cmd.URL, opts); err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Op: "navigate", Err: err}
		}
		return nil, &NavigationError{URL: cmd.URL, Err: err}
	}

	return s.result(cmd.Kind, ""), nil
}

func (s *Session) evaluate(cmd Command) (*Result, error) {
	if cmd.Script == "" {
		return nil, &ScriptError{Detail: "script is required"}
	}

	value, err := s.Page.Evaluate(cmd.Script)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Op: "evaluate", Err: err}
		}
		return nil, &ScriptError{Detail: "evaluate", Err: err}
	}

	text := ""
	if value != nil {
		text = fmt.Sprintf("%v", value)
	}
	return s.result(cmd.Kind, text), nil
}

func (s *Session) screenshot(cmd Command, timeout float64) (*Result, error) {
	opts := playwright.PageScreenshotOptions{
		FullPage: &cmd.FullPage,
		Timeout:  &timeout,
	}

	buf, err := s.Page.Screenshot(opts)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Op: "screenshot", Err: err}
		}
		return nil, &ScriptError{Detail: "screenshot", Err: err}
	}

	result := s.result(cmd.Kind, "")
	result.Screenshot = buf
	return result, nil
}

// content returns the page's full HTML, or the outer HTML of the first
// element matching the selector when one is given.
func (s *Session) content(cmd Command, timeout float64) (*Result, error) {
	if cmd.Selector != "" {
		locator := s.Page.Locator(cmd.Selector).First()
		html, err := locator.InnerHTML(playwright.LocatorInnerHTMLOptions{Timeout: &timeout})
		if err != nil {
			if isTimeout(err) {
				return nil, &TimeoutError{Op: "content", Err: err}
			}
			return nil, &ScriptError{Detail: fmt.Sprintf("selector %q", cmd.Selector), Err: err}
		}
		return s.result(cmd.Kind, html), nil
	}

	html, err := s.Page.Content()
	if err != nil {
		return nil, &ScriptError{Detail: "page content", Err: err}
	}
	return s.result(cmd.Kind, html), nil
}

func (s *Session) click(cmd Command, timeout float64) (*Result, error) {
	if cmd.Selector == "" {
		return nil, &ScriptError{Detail: "selector is required for click"}
	}

	err := s.Page.Click(cmd.Selector, playwright.PageClickOptions{Timeout: &timeout})
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Op: "click", Err: err}
		}
		return nil, &ScriptError{Detail: fmt.Sprintf("click %q", cmd.Selector), Err: err}
	}

	return s.result(cmd.Kind, ""), nil
}

func (s *Session) fill(cmd Command, timeout float64) (*Result, error) {
	if cmd.Selector == "" {
		return nil, &ScriptError{Detail: "selector is required for fill"}
	}

	err := s.Page.Fill(cmd.Selector, cmd.Value, playwright.PageFillOptions{Timeout: &timeout})
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Op: "fill", Err: err}
		}
		return nil, &ScriptError{Detail: fmt.Sprintf("fill %q", cmd.Selector), Err: err}
	}

	return s.result(cmd.Kind, ""), nil
}

func (s *Session) waitFor(cmd Command, timeout float64) (*Result, error) {
	if cmd.Selector == "" {
		return nil, &ScriptError{Detail: "selector is required for wait_for"}
	}

	opts := playwright.PageWaitForSelectorOptions{Timeout: &timeout}
	if cmd.WaitState != "" {
		state := playwright.WaitForSelectorState(cmd.WaitState)
		opts.State = &state
	}

	if _, err := s.Page.WaitForSelector(cmd.Selector, opts); err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Op: "wait_for", Err: err}
		}
		return nil, &ScriptError{Detail: fmt.Sprintf("wait for %q", cmd.Selector), Err: err}
	}

	return s.result(cmd.Kind, ""), nil
}

// result builds the common portion of a command result from live page state.
func (s *Session) result(kind Kind, text string) *Result {
	title, err := s.Page.Title()
	if err != nil {
		title = ""
	}
	return &Result{
		Kind:  kind,
		URL:   s.Page.URL(),
		Title: title,
		Text:  text,
	}
}

// info snapshots the session for listings.
func (s *Session) info() Info {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return Info{
		ID:         s.ID,
		State:      s.State,
		CurrentURL: s.CurrentURL,
		Headless:   s.Options.Headless,
		CreatedAt:  s.CreatedAt,
		LastUsedAt: s.LastUsedAt,
	}
}

// state reads the lifecycle state.
func (s *Session) state() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.State
}

// setState flips the lifecycle state.
func (s *Session) setState(state State) {
	s.stateMu.Lock()
	s.State = state
	s.stateMu.Unlock()
}

// touch records activity and the page's current location.
func (s *Session) touch(url string) {
	s.stateMu.Lock()
	s.LastUsedAt = time.Now()
	s.CurrentURL = url
	s.stateMu.Unlock()
}

// idleFor reports how long the session has been idle at the given instant,
// or zero if a command is in flight.
func (s *Session) idleFor(now time.Time) time.Duration {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.State == StateBusy {
		return 0
	}
	return now.Sub(s.LastUsedAt)
}
