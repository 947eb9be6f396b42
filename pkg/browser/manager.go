package browser

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

// ManagerOptions configures the session runtime.
type ManagerOptions struct {
	// MaxSessions caps concurrent browser processes; 0 uses the default
	MaxSessions int

	// IdleTimeout is how long a session may sit unused before the janitor
	// reaps it; 0 uses the default
	IdleTimeout time.Duration

	// DefaultTimeout is the per-command timeout in milliseconds applied to
	// sessions that don't set their own; 0 uses the default
	DefaultTimeout float64

	// BrowsersPath overrides where Playwright looks for browser binaries.
	// Empty leaves PLAYWRIGHT_BROWSERS_PATH untouched.
	BrowsersPath string

	// SkipInstall skips downloading browsers on Start. Set when the image
	// already staged Chromium (the usual container case).
	SkipInstall bool

	// Logger receives lifecycle events; a zero Logger is silent
	Logger zerolog.Logger
}

// Manager owns every live session and the underlying Playwright driver.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	pw       *playwright.Playwright
	opts     ManagerOptions
	log      zerolog.Logger
	started  bool
}

// NewManager creates a session manager. Call Start before opening sessions.
func NewManager(opts ManagerOptions) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultTimeout
	}
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
		log:      opts.Logger,
	}
}

// Start boots the Playwright driver. Safe to call more than once.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}

	if m.opts.BrowsersPath != "" {
		if err := os.Setenv("PLAYWRIGHT_BROWSERS_PATH", m.opts.BrowsersPath); err != nil {
			return &LaunchError{Reason: "setting browsers path", Err: err}
		}
	}

	// Driver output is noise in service logs; discard it.
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if !m.opts.SkipInstall {
		if err := playwright.Install(runOpts); err != nil {
			return &LaunchError{Reason: "installing playwright", Err: err}
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return &LaunchError{Reason: "starting playwright driver", Err: err}
	}

	m.pw = pw
	m.started = true
	m.log.Info().Msg("browser runtime started")
	return nil
}

// Open launches a browser and returns a session in the Ready state.
func (m *Manager) Open(ctx context.Context, opts SessionOptions) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil, &LaunchError{Reason: "runtime not started"}
	}
	if len(m.sessions) >= m.opts.MaxSessions {
		return nil, &LaunchError{
			Reason: fmt.Sprintf("session limit (%d) reached", m.opts.MaxSessions),
			Err:    ErrTooManySessions,
		}
	}

	if opts.Viewport == nil {
		opts.Viewport = &Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = m.opts.DefaultTimeout
	}

	browser, err := m.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	})
	if err != nil {
		return nil, &LaunchError{Reason: "launching chromium", Err: err}
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = &opts.UserAgent
	}
	browserCtx, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		return nil, &LaunchError{Reason: "creating browser context", Err: err}
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		return nil, &LaunchError{Reason: "creating page", Err: err}
	}
	page.SetDefaultTimeout(opts.Timeout)

	now := time.Now()
	session := &Session{
		ID:         uuid.New().String(),
		Browser:    browser,
		Context:    browserCtx,
		Page:       page,
		Options:    opts,
		State:      StateReady,
		CreatedAt:  now,
		LastUsedAt: now,
		CurrentURL: "about:blank",
	}

	m.sessions[session.ID] = session
	m.log.Info().Str("session", session.ID).Bool("headless", opts.Headless).Msg("session opened")
	return session, nil
}

// Execute runs one command against a session. Commands on the same session
// serialize; the session is Busy while one runs. Failures come back as
// typed errors (LaunchError, NavigationError, ScriptError, TimeoutError).
func (m *Manager) Execute(ctx context.Context, id string, cmd Command) (*Result, error) {
	m.mu.RLock()
	session, exists := m.sessions[id]
	m.mu.RUnlock()
	if !exists {
		return nil, ErrSessionNotFound
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	switch session.state() {
	case StateClosed:
		return nil, ErrSessionNotFound
	case StateFailed:
		return nil, &LaunchError{Reason: "browser process is gone"}
	}

	if err := ctx.Err(); err != nil {
		return nil, &TimeoutError{Op: string(cmd.Kind), Err: err}
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = session.Options.Timeout
	}

	session.setState(StateBusy)
	start := time.Now()
	result, err := session.run(cmd, timeout)
	elapsed := time.Since(start)
	session.touch(session.Page.URL())

	if err != nil {
		if isDisconnect(err) || !session.Browser.IsConnected() {
			session.setState(StateFailed)
			m.log.Error().Str("session", id).Err(err).Msg("browser process lost")
			return nil, &LaunchError{Reason: "browser process is gone", Err: err}
		}
		// Timeouts leave the page usable, so the session returns to Ready.
		session.setState(StateReady)
		m.log.Warn().Str("session", id).Str("kind", string(cmd.Kind)).Err(err).Msg("command failed")
		return nil, err
	}

	session.setState(StateReady)
	result.Elapsed = elapsed
	m.log.Debug().
		Str("session", id).
		Str("kind", string(cmd.Kind)).
		Dur("elapsed", elapsed).
		Msg("command executed")
	return result, nil
}

// Close releases a session. Closing an unknown or already-closed session is
// not an error; the caller's intent is already satisfied.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	session, exists := m.sessions[id]
	if exists {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !exists {
		return nil
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	m.release(session)
	m.log.Info().Str("session", id).Msg("session closed")
	return nil
}

// release tears down Playwright resources. Errors are ignored so cleanup
// always runs to completion.
func (m *Manager) release(session *Session) {
	_ = session.Page.Close()
	_ = session.Context.Close()
	_ = session.Browser.Close()
	session.setState(StateClosed)
}

// Get returns a snapshot of one session.
func (m *Manager) Get(id string) (Info, error) {
	m.mu.RLock()
	session, exists := m.sessions[id]
	m.mu.RUnlock()
	if !exists {
		return Info{}, ErrSessionNotFound
	}
	return session.info(), nil
}

// List returns snapshots of every live session.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]Info, 0, len(m.sessions))
	for _, session := range m.sessions {
		infos = append(infos, session.info())
	}
	return infos
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Started reports whether the Playwright driver is running.
func (m *Manager) Started() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.started
}

// ReapIdle closes sessions idle past the configured timeout and returns the
// IDs it reaped. Busy sessions are never reaped.
func (m *Manager) ReapIdle(now time.Time) []string {
	m.mu.Lock()
	var idle []*Session
	for id, session := range m.sessions {
		if session.idleFor(now) > m.opts.IdleTimeout {
			idle = append(idle, session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	reaped := make([]string, 0, len(idle))
	for _, session := range idle {
		session.mu.Lock()
		m.release(session)
		session.mu.Unlock()
		reaped = append(reaped, session.ID)
		m.log.Info().Str("session", session.ID).Msg("idle session reaped")
	}
	return reaped
}

// Shutdown closes every session and stops the Playwright driver.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, session := range m.sessions {
		session.mu.Lock()
		m.release(session)
		session.mu.Unlock()
		delete(m.sessions, id)
	}

	if m.started && m.pw != nil {
		if err := m.pw.Stop(); err != nil {
			return fmt.Errorf("stopping playwright driver: %w", err)
		}
		m.started = false
	}
	m.log.Info().Msg("browser runtime stopped")
	return nil
}
