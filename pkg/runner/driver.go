package runner

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Driver names accepted in webdrive.classes.
const (
	DriverHTMLUnit = "htmlunit" // plain HTTP, or headless Chrome when JS is enabled
	DriverHTTP     = "http"     // plain HTTP, never runs JavaScript
	DriverHeadless = "headless" // headless Chrome
	DriverChrome   = "chrome"   // visible Chrome
)

// Driver loads pages the way a WebDriver session does. The server under
// test does the actual test execution; the driver only has to visit pages.
type Driver interface {
	Name() string
	Get(ctx context.Context, url string) error
	Quit() error
}

// DriverFactory opens a new session of the named driver.
type DriverFactory func(name string) (Driver, error)

// ParseDrivers splits webdrive.classes and normalizes each entry, so
// Selenium class names such as org.openqa.selenium.chrome.ChromeDriver keep
// working. An empty list selects the HtmlUnit driver.
func ParseDrivers(s string) ([]string, error) {
	var drivers []string
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		name := normalizeDriver(f)
		switch name {
		case DriverHTMLUnit, DriverHTTP, DriverHeadless, DriverChrome:
			drivers = append(drivers, name)
		default:
			return nil, fmt.Errorf("unsupported driver %q", f)
		}
	}
	if len(drivers) == 0 {
		drivers = []string{DriverHTMLUnit}
	}
	return drivers, nil
}

func normalizeDriver(s string) string {
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.ToLower(s), "driver")
	switch s {
	case "chrome-headless", "headlesschrome":
		return DriverHeadless
	}
	return s
}

// NewDriverFactory returns the factory used outside of tests. It maps the
// driver names onto plain HTTP sessions or Rod-controlled Chrome.
func NewDriverFactory(cfg Config, client *http.Client) DriverFactory {
	return func(name string) (Driver, error) {
		browser := DefaultBrowserConfig()
		browser.Bin = cfg.BrowserBin
		switch name {
		case DriverHTTP:
			return &httpDriver{name: name, client: client}, nil
		case DriverHTMLUnit:
			if !cfg.JavaScript {
				return &httpDriver{name: name, client: client}, nil
			}
		case DriverHeadless:
		case DriverChrome:
			browser.Headless = false
		default:
			return nil, fmt.Errorf("unsupported driver %q", name)
		}
		return NewBrowserClient(name, browser)
	}
}

// httpDriver fetches pages without a browser. Play runs unit and
// functional tests server side, so this is enough for them.
type httpDriver struct {
	name   string
	client *http.Client
}

func (d *httpDriver) Name() string { return d.name }

func (d *httpDriver) Get(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", url, err)
	}
	defer resp.Body.Close()
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

func (d *httpDriver) Quit() error { return nil }

// NewHTTPClient returns the client used for /@tests.list and the http
// driver. Test pages may take a while to render.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Minute}
}
