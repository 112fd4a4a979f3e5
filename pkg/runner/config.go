package runner

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultRetry is how many times failing tests are re-run.
	DefaultRetry = 3
	// DefaultAppURL is used when neither application.baseUrl nor
	// application.url is given.
	DefaultAppURL = "http://localhost:9000"
	// DefaultTimeoutSeconds bounds how long a single test may take.
	DefaultTimeoutSeconds = 120
)

// Properties are the runner's system properties, set with repeated
// -D key=value flags. It implements flag.Value.
type Properties map[string]string

func (p Properties) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + p[k]
	}
	return strings.Join(parts, ",")
}

// Set parses "key=value". A bare key is stored with an empty value.
func (p Properties) Set(s string) error {
	k, v, _ := strings.Cut(s, "=")
	if k == "" {
		return fmt.Errorf("invalid property %q", s)
	}
	p[k] = v
	return nil
}

// Bool is true only for a case-insensitive "true".
func (p Properties) Bool(key string) bool {
	return strings.EqualFold(strings.TrimSpace(p[key]), "true")
}

// Config is the typed runner configuration.
type Config struct {
	BaseURL        string   // URL of the application under test
	TimeoutSeconds int      // per-test result polling limit
	MaxRetries     int      // re-runs of failing tests
	RunUnit        bool     // runUnitTests
	RunFunctional  bool     // runFunctionalTests
	RunSelenium    bool     // runSeleniumTests
	JavaScript     bool     // webdrive.htmlunit.js.enable
	Drivers        []string // normalized webdrive.classes
	BrowserBin     string   // phantomjs.binary.path
}

// RunNonSelenium reports whether unit and functional tests should run.
func (c Config) RunNonSelenium() bool { return c.RunUnit || c.RunFunctional }

// RunSeleniumTests reports whether selenium suites should run. Enabling
// JavaScript for the HtmlUnit driver implies it.
func (c Config) RunSeleniumTests() bool { return c.RunSelenium || c.JavaScript }

// ConfigFromProperties builds a Config, announcing the chosen base URL
// and timeout on lg. Malformed numbers fall back to their defaults.
func ConfigFromProperties(p Properties, lg *logrus.Logger) (Config, error) {
	cfg := Config{
		MaxRetries:     DefaultRetry,
		TimeoutSeconds: DefaultTimeoutSeconds,
		RunUnit:        p.Bool("runUnitTests"),
		RunFunctional:  p.Bool("runFunctionalTests"),
		RunSelenium:    p.Bool("runSeleniumTests"),
		JavaScript:     p.Bool("webdrive.htmlunit.js.enable"),
		BrowserBin:     strings.TrimSpace(p["phantomjs.binary.path"]),
	}

	if s := strings.TrimSpace(p["webdrive.test.retry"]); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			lg.Infof("The retry value %s is not a number. Setting to default value %d", s, DefaultRetry)
		} else {
			cfg.MaxRetries = n
		}
	}

	cfg.BaseURL = firstNonEmpty(p["application.baseUrl"], p["application.url"], DefaultAppURL)
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	lg.Infof("Using a base url value of %s", cfg.BaseURL)

	if s := strings.TrimSpace(p["webdrive.timeout"]); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			lg.Infof("The timeout value %s is not a number. Setting to default value %d seconds", s, DefaultTimeoutSeconds)
		} else {
			cfg.TimeoutSeconds = n
		}
	}
	lg.Infof("Using a timeout value of %d seconds", cfg.TimeoutSeconds)

	drivers, err := ParseDrivers(p["webdrive.classes"])
	if err != nil {
		return Config{}, err
	}
	cfg.Drivers = drivers
	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
