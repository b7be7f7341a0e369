// Package chromium implements the render.Launcher interface on top of
// headless Chrome via chromedp.
package chromium

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/harmon-tuazon/PD-enrollment-letter-generator/render"
)

// Launcher starts headless Chrome sessions.
type Launcher struct {
	Logger *log.Logger
}

// Launch starts a browser process with a flag set appropriate to the
// configured runtime mode and waits for it to come up.
func (l *Launcher) Launch(ctx context.Context, cfg render.LaunchConfig) (render.Session, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.Mode == render.ModeServerless {
		opts = append(opts,
			chromedp.NoSandbox,
			chromedp.DisableGPU,
			chromedp.Flag("single-process", true),
			chromedp.Flag("no-zygote", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	if l.Logger != nil {
		l.Logger.Printf("launching chromium (mode %s)", cfg.Mode)
	}

	// Run with no actions starts the browser. Bound by the caller's launch
	// context so a hung startup does not wedge the process.
	startErr := make(chan error, 1)
	go func() {
		startErr <- chromedp.Run(browserCtx)
	}()
	select {
	case err := <-startErr:
		if err != nil {
			cancelBrowser()
			cancelAlloc()
			return nil, fmt.Errorf("start chromium: %w", err)
		}
	case <-ctx.Done():
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start chromium: %w", ctx.Err())
	}

	created := &session{
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}
	go created.watch()
	return created, nil
}

type session struct {
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc

	mu           sync.Mutex
	disconnected bool
	callbacks    []func()
}

// watch fires disconnect callbacks when the browser context ends, whether
// from a crash or an explicit Close.
func (s *session) watch() {
	<-s.browserCtx.Done()
	s.mu.Lock()
	s.disconnected = true
	callbacks := s.callbacks
	s.callbacks = nil
	s.mu.Unlock()
	for _, callback := range callbacks {
		callback()
	}
}

func (s *session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.disconnected && s.browserCtx.Err() == nil
}

func (s *session) OnDisconnect(callback func()) {
	if callback == nil {
		return
	}
	s.mu.Lock()
	alreadyDown := s.disconnected
	if !alreadyDown {
		s.callbacks = append(s.callbacks, callback)
	}
	s.mu.Unlock()
	if alreadyDown {
		callback()
	}
}

func (s *session) NewPage(ctx context.Context) (render.Page, error) {
	if s.browserCtx.Err() != nil {
		return nil, fmt.Errorf("session closed: %w", s.browserCtx.Err())
	}
	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	// Navigating to a blank document materializes the tab.
	if err := chromedp.Run(tabCtx, chromedp.Navigate("about:blank")); err != nil {
		cancelTab()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &tab{ctx: tabCtx, cancel: cancelTab}, nil
}

func (s *session) Close() error {
	err := chromedp.Cancel(s.browserCtx)
	s.cancelBrowser()
	s.cancelAlloc()
	return err
}

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (t *tab) SetViewport(width, height int, scale float64) error {
	return chromedp.Run(t.ctx, chromedp.EmulateViewport(
		int64(width), int64(height), chromedp.EmulateScale(scale),
	))
}

func (t *tab) SetContent(ctx context.Context, markup string, timeout time.Duration) error {
	loadCtx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()
	return chromedp.Run(loadCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, markup).Do(ctx)
		}),
		// WaitReady returns once the document settles, which covers the
		// network-idle wait for inlined letter markup.
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (t *tab) PDF(ctx context.Context, opts render.PDFOptions) ([]byte, error) {
	width, height := opts.PaperSize()
	printBackground := opts.PrintBackground != nil && *opts.PrintBackground
	params := page.PrintToPDF().
		WithPrintBackground(printBackground).
		WithPaperWidth(width).
		WithPaperHeight(height)
	if opts.MarginTop != nil {
		params = params.WithMarginTop(*opts.MarginTop)
	}
	if opts.MarginRight != nil {
		params = params.WithMarginRight(*opts.MarginRight)
	}
	if opts.MarginBottom != nil {
		params = params.WithMarginBottom(*opts.MarginBottom)
	}
	if opts.MarginLeft != nil {
		params = params.WithMarginLeft(*opts.MarginLeft)
	}

	var buffer []byte
	err := chromedp.Run(t.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := params.Do(ctx)
		if err != nil {
			return err
		}
		buffer = data
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return buffer, nil
}

func (t *tab) Close() error {
	t.cancel()
	return nil
}
