package browser

import (
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// State describes where a session is in its lifecycle.
type State string

const (
	// StateStarting means the browser process is launching
	StateStarting State = "starting"

	// StateReady means the session can accept commands
	StateReady State = "ready"

	// StateBusy means a command is currently executing
	StateBusy State = "busy"

	// StateClosed means the session has been released
	StateClosed State = "closed"

	// StateFailed means the underlying browser process is gone
	StateFailed State = "failed"
)

// Session is a handle to one live browser instance. All fields except the
// immutable ones are guarded by the session's own mutex; callers outside
// this package only ever see snapshots via Info.
type Session struct {
	// ID is the unique identifier for this session
	ID string

	// Browser is the Playwright browser instance backing the session
	Browser playwright.Browser

	// Context is the isolated browser context
	Context playwright.BrowserContext

	// Page is the single page commands run against
	Page playwright.Page

	// Options holds the launch configuration the session was opened with
	Options SessionOptions

	// State is the current lifecycle state
	State State

	// CreatedAt is when the session was opened
	CreatedAt time.Time

	// LastUsedAt is when the last command finished
	LastUsedAt time.Time

	// CurrentURL is the URL of the page after the last command
	CurrentURL string

	// mu serializes commands and teardown on this session
	mu sync.Mutex

	// stateMu guards State, LastUsedAt, and CurrentURL so listings never
	// block behind a running command
	stateMu sync.RWMutex
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool `json:"headless"`

	// Viewport sets the initial viewport size; nil uses the default
	Viewport *Viewport `json:"viewport,omitempty"`

	// UserAgent overrides the browser's user agent when non-empty
	UserAgent string `json:"user_agent,omitempty"`

	// Timeout is the default per-command timeout in milliseconds
	Timeout float64 `json:"timeout,omitempty"`
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Kind identifies the action a command performs.
type Kind string

const (
	KindNavigate   Kind = "navigate"
	KindEvaluate   Kind = "evaluate"
	KindScreenshot Kind = "screenshot"
	KindContent    Kind = "content"
	KindClick      Kind = "click"
	KindFill       Kind = "fill"
	KindWaitFor    Kind = "wait_for"
)

// Command is a single requested action bound to a session.
type Command struct {
	// Kind selects the action
	Kind Kind `json:"kind"`

	// URL is the navigation target (navigate)
	URL string `json:"url,omitempty"`

	// WaitUntil is the navigation milestone: "load", "domcontentloaded",
	// "networkidle" (navigate)
	WaitUntil string `json:"wait_until,omitempty"`

	// Script is the JavaScript expression to run (evaluate)
	Script string `json:"script,omitempty"`

	// Selector identifies the target element (click, fill, wait_for, content)
	Selector string `json:"selector,omitempty"`

	// Value is the text to type (fill)
	Value string `json:"value,omitempty"`

	// FullPage captures the whole scrollable page (screenshot)
	FullPage bool `json:"full_page,omitempty"`

	// WaitState is the element state to wait for: "attached", "detached",
	// "visible", "hidden" (wait_for)
	WaitState string `json:"wait_state,omitempty"`

	// Timeout overrides the session default for this command, in milliseconds
	Timeout float64 `json:"timeout,omitempty"`
}

// Result is the outcome of a successfully executed command.
type Result struct {
	// Kind echoes the command kind
	Kind Kind `json:"kind"`

	// URL is the page URL after the command ran
	URL string `json:"url"`

	// Title is the page title after the command ran
	Title string `json:"title,omitempty"`

	// Text holds extracted content or the stringified evaluate result
	Text string `json:"text,omitempty"`

	// Screenshot holds captured image bytes (PNG)
	Screenshot []byte `json:"screenshot,omitempty"`

	// Elapsed is how long the command took
	Elapsed time.Duration `json:"elapsed"`
}

// Info is a read-only snapshot of a session for listings.
type Info struct {
	ID         string    `json:"id"`
	State      State     `json:"state"`
	CurrentURL string    `json:"current_url"`
	Headless   bool      `json:"headless"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Defaults applied when options leave a field unset.
const (
	DefaultTimeout        = 30000.0 // milliseconds
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultMaxSessions    = 5
	DefaultIdleTimeout    = 5 * time.Minute
)
