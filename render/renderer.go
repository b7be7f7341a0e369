package render

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

const (
	// DefaultMaxAttempts is the standard render attempt budget.
	DefaultMaxAttempts = 3

	viewportWidth  = 1280
	viewportHeight = 720
	viewportScale  = 2.0

	contentTimeout = 30 * time.Second
	backoffUnit    = time.Second
)

// RendererOptions configures a renderer.
type RendererOptions struct {
	Sessions *SessionManager
	Logger   *log.Logger
}

// Renderer converts markup into PDF bytes, tolerating transient session
// failures with a bounded retry loop.
type Renderer struct {
	sessions *SessionManager
	logger   *log.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRenderer creates a renderer backed by the given session manager.
func NewRenderer(opts RendererOptions) (*Renderer, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &Renderer{
		sessions: opts.Sessions,
		logger:   opts.Logger,
		sleep:    sleepContext,
	}, nil
}

// Render produces a PDF from markup, retrying up to maxAttempts times with
// linear backoff between attempts. Each attempt opens exactly one page and
// closes it on every exit path. The session itself is never closed here; a
// disconnected session is only forgotten so the next attempt relaunches.
// An empty result buffer is still a success at this layer.
func (r *Renderer) Render(ctx context.Context, markup string, opts PDFOptions, maxAttempts int) ([]byte, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, ErrEmptyMarkup
	}
	if maxAttempts < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAttempts, maxAttempts)
	}

	merged := opts.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		buffer, err := r.attempt(ctx, markup, merged)
		if err == nil {
			return buffer, nil
		}
		lastErr = err
		r.logf("render attempt %d/%d failed: %v", attempt, maxAttempts, err)
		r.sessions.Invalidate()

		if attempt == maxAttempts {
			break
		}
		if err := r.sleep(ctx, time.Duration(attempt)*backoffUnit); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %d attempts: %w", ErrAttemptsExhausted, maxAttempts, lastErr)
}

func (r *Renderer) attempt(ctx context.Context, markup string, opts PDFOptions) ([]byte, error) {
	session, err := r.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !session.Connected() {
		return nil, ErrSessionDisconnected
	}

	page, err := session.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	if err := page.SetViewport(viewportWidth, viewportHeight, viewportScale); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if err := page.SetContent(ctx, markup, contentTimeout); err != nil {
		return nil, fmt.Errorf("load markup: %w", err)
	}
	buffer, err := page.PDF(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("produce pdf: %w", err)
	}
	return buffer, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Renderer) logf(format string, args ...any) {
	if r == nil || r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}
