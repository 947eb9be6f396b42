// Package browser is the session runtime: it owns headless Chromium
// instances through Playwright and executes commands against them.
//
// # Architecture
//
// The package is built around three core concepts:
//
//  1. Session: one Playwright browser instance with its context and page
//  2. Manager: the registry owning every live session and the driver
//  3. Command: a single typed action (navigate, evaluate, screenshot,
//     content, click, fill, wait_for) bound to a session
//
// # Session lifecycle
//
// A session moves through Starting, Ready, Busy, and finally Closed or
// Failed. Commands on one session serialize; the session is Busy while one
// runs and Ready again afterwards, including after a timeout. A session
// whose browser process dies becomes Failed: commands then report a launch
// failure but Close still succeeds. Sessions idle past the configured
// timeout are reaped by the janitor exactly as if they were closed.
//
// Failures surface as typed errors: LaunchError, NavigationError,
// ScriptError, and TimeoutError, each wrapping the driver's underlying
// error.
package browser
