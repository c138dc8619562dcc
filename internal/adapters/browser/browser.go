// Package browser attaches the tracker to a Chrome tab over the DevTools
// protocol. Input listeners are injected into the page and polled on each
// state probe.
package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Connect attaches to a running Chrome at debuggerURL, or launches a visible
// one when debuggerURL is empty. The cleanup func must be called once the
// browser is no longer needed; it leaves a Chrome it did not start running.
func Connect(ctx context.Context, debuggerURL string) (*rod.Browser, func(), error) {
	if debuggerURL == "" {
		return Launch(ctx, launcher.New().Headless(false))
	}
	browser, err := connect(ctx, debuggerURL)
	if err != nil {
		return nil, nil, err
	}
	return browser, func() {}, nil
}

// Launch starts Chrome with l and connects to it. Cleanup closes the browser,
// kills the process and removes its profile directory.
func Launch(ctx context.Context, l *launcher.Launcher) (*rod.Browser, func(), error) {
	controlURL, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to launch chrome: %w", err)
	}
	stop := func() {
		l.Kill()
		l.Cleanup()
	}

	browser, err := connect(ctx, controlURL)
	if err != nil {
		stop()
		return nil, nil, err
	}
	return browser, func() {
		_ = browser.Context(context.Background()).Close()
		stop()
	}, nil
}

func connect(ctx context.Context, controlURL string) (*rod.Browser, error) {
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(browser); err != nil {
		return nil, fmt.Errorf("discover targets: %w", err)
	}
	return browser, nil
}

// Target opens url in a new tab, or picks the first open tab when url is empty.
func Target(browser *rod.Browser, url string) (*rod.Page, error) {
	if url != "" {
		page, err := browser.Page(proto.TargetCreateTarget{URL: url})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", url, err)
		}
		return page, nil
	}

	pages, err := browser.Pages()
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no open tabs")
	}
	return pages.First(), nil
}
