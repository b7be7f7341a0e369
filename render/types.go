// Package render manages a single headless rendering session and turns
// letter markup into PDF bytes, retrying across transient session failures.
package render

import (
	"context"
	"time"
)

// Launcher starts rendering engine sessions.
type Launcher interface {
	Launch(ctx context.Context, cfg LaunchConfig) (Session, error)
}

// Session is a live handle to a rendering engine process.
type Session interface {
	// NewPage opens a fresh page in the session.
	NewPage(ctx context.Context) (Page, error)
	// Connected reports whether the engine process is still reachable.
	Connected() bool
	// OnDisconnect registers a callback invoked once when the session drops.
	OnDisconnect(func())
	Close() error
}

// Page is a single tab used for one render attempt.
type Page interface {
	SetViewport(width, height int, scale float64) error
	// SetContent loads markup and waits for network activity to settle,
	// bounded by timeout.
	SetContent(ctx context.Context, markup string, timeout time.Duration) error
	PDF(ctx context.Context, opts PDFOptions) ([]byte, error)
	Close() error
}

// LaunchMode selects the flag set used to start the engine.
type LaunchMode string

const (
	// ModeServerless uses the constrained flag set for container runtimes.
	ModeServerless LaunchMode = "serverless"
	// ModeLocal uses the relaxed flag set for local development.
	ModeLocal LaunchMode = "local"
)

// DefaultLaunchTimeout bounds how long a session launch may take.
const DefaultLaunchTimeout = 60 * time.Second

// LaunchConfig configures a session launch.
type LaunchConfig struct {
	Mode LaunchMode
	// ExecPath overrides the engine binary location.
	ExecPath string
	// Timeout bounds the launch; DefaultLaunchTimeout when zero.
	Timeout time.Duration
}

func (cfg LaunchConfig) launchTimeout() time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return DefaultLaunchTimeout
}
