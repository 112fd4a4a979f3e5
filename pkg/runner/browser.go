package runner

// browser.go provides the Rod-backed Chrome driver.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserConfig configures Chrome launch options.
type BrowserConfig struct {
	Headless   bool          // Run in headless mode (default: true)
	Timeout    time.Duration // Page load timeout (default: 2m)
	Bin        string        // Browser binary, empty lets Rod find or download one
	JavaScript bool          // Enable JavaScript (default: true)
}

// DefaultBrowserConfig returns defaults suitable for CI runs.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:   true,
		Timeout:    2 * time.Minute,
		JavaScript: true,
	}
}

// BrowserClient is a Chrome session driven through Rod. It keeps a single
// tab open, like a WebDriver session.
type BrowserClient struct {
	name    string
	browser *rod.Browser
	page    *rod.Page
	timeout time.Duration
}

var _ Driver = (*BrowserClient)(nil)

// NewBrowserClient launches Chrome and opens a blank tab.
// The browser is configured with:
//   - No sandbox (for container compatibility)
//   - No GPU
//   - Autoplay without user gesture
func NewBrowserClient(name string, cfg BrowserConfig) (*BrowserClient, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("autoplay-policy", "no-user-gesture-required")
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch Chrome: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to Chrome: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	if !cfg.JavaScript {
		if err := (proto.EmulationSetScriptExecutionDisabled{Value: true}).Call(page); err != nil {
			browser.Close()
			return nil, fmt.Errorf("failed to disable JavaScript: %w", err)
		}
	}

	return &BrowserClient{
		name:    name,
		browser: browser,
		page:    page,
		timeout: cfg.Timeout,
	}, nil
}

// Name returns the driver name the client was created for.
func (c *BrowserClient) Name() string { return c.name }

// Get navigates the tab to url and waits for the load event.
func (c *BrowserClient) Get(ctx context.Context, url string) error {
	if c.page == nil {
		return errors.New("browser closed")
	}
	page := c.page.Context(ctx).Timeout(c.timeout)
	defer page.CancelTimeout()

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	return nil
}

// Page returns the open tab, or nil once the client is closed.
func (c *BrowserClient) Page() *rod.Page {
	return c.page
}

// Quit closes the browser.
// Always call this (via defer) to prevent orphaned Chrome processes.
func (c *BrowserClient) Quit() error {
	c.page = nil
	if c.browser != nil {
		return c.browser.Close()
	}
	return nil
}
