// Package runner drives the tests of a Play application running in test
// mode. It fetches /@tests.list, visits each test page with a driver,
// waits for the server to write the test's result file and finally leaves a
// result.passed or result.failed marker in the result directory.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"

	"github.com/thesyncim/webdrive/pkg/console"
)

// Marker files created when all drivers are done.
const (
	PassedMarker = "result.passed"
	FailedMarker = "result.failed"
)

// status of a single test execution.
type status int

const (
	statusPassed status = iota
	statusFailed
	statusTimeout
)

// label is printed after the test name, padded to a fixed width.
func (s status) label() string {
	switch s {
	case statusPassed:
		return "PASSED      "
	case statusFailed:
		return "FAILED   !  "
	default:
		return "TIMEOUT  ?  "
	}
}

var errPending = errors.New("result not written yet")

// Option configures a Runner.
type Option func(*Runner)

// WithDriverFactory replaces the Rod/HTTP driver factory.
func WithDriverFactory(f DriverFactory) Option {
	return func(r *Runner) { r.newDriver = f }
}

// WithHTTPClient sets the client used to fetch /@tests.list.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Runner) { r.client = c }
}

// WithClock sets the clock used to time tests.
func WithClock(c clock.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithPollInterval sets how often result files are checked. Each test gets
// TimeoutSeconds checks. Default: 1 second
func WithPollInterval(d time.Duration) Option {
	return func(r *Runner) { r.pollInterval = d }
}

// WithOutput sets where progress lines and "~" messages go.
func WithOutput(out io.Writer, lg *logrus.Logger) Option {
	return func(r *Runner) {
		r.out = out
		r.log = lg
	}
}

// Runner runs the test list of one application.
type Runner struct {
	cfg          Config
	client       *http.Client
	newDriver    DriverFactory
	clock        clock.Clock
	pollInterval time.Duration
	out          io.Writer
	log          *logrus.Logger

	list   *TestList
	failed bool
}

// New creates a Runner for cfg.
func New(cfg Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:          cfg,
		client:       NewHTTPClient(),
		clock:        clock.NewClock(),
		pollInterval: time.Second,
		out:          io.Discard,
		log:          console.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.newDriver == nil {
		r.newDriver = NewDriverFactory(cfg, r.client)
	}
	return r
}

// Run executes the enabled test groups and writes the marker file. It
// reports whether every test passed. An error means the test list could
// not be retrieved, or ctx was canceled; no marker is written then.
func (r *Runner) Run(ctx context.Context) (bool, error) {
	list, err := FetchTestList(ctx, r.client, r.cfg.BaseURL)
	if err != nil {
		r.log.Infof("The application does not start. There are errors: %v", err)
		return false, err
	}
	r.list = list

	r.log.Infof("%d selenium %s to run", len(list.Selenium), plural("test", len(list.Selenium)))
	r.log.Infof("%d other %s to run", len(list.Other), plural("test", len(list.Other)))
	r.log.Info("")

	if r.cfg.RunNonSelenium() {
		if err := r.runWithDriver(ctx, DriverHTMLUnit, list.Other, 0); err != nil {
			return false, err
		}
	}
	if r.cfg.RunSeleniumTests() {
		for _, d := range r.cfg.Drivers {
			if err := r.runWithDriver(ctx, d, list.Selenium, 0); err != nil {
				return false, err
			}
		}
	}

	marker := PassedMarker
	if r.failed {
		marker = FailedMarker
	}
	if err := os.WriteFile(joinRoot(list.ResultRoot, marker), nil, 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", marker, err)
	}
	return !r.failed, nil
}

// runWithDriver runs tests in a fresh session of driver. Failing tests are
// run again, in a new session, until they pass or the retries are used up.
// Driver problems fail the run but let the remaining drivers go on; only
// cancellation is returned as an error.
func (r *Runner) runWithDriver(ctx context.Context, driver string, tests []string, attempt int) error {
	fmt.Fprint(r.out, "\n\n~~~~~~~~~~~~~\n\n\n")
	r.log.Infof("Starting tests with %s", driver)
	r.log.Infof("Retry #  %d / %d", attempt+1, r.cfg.MaxRetries)

	d, err := r.newDriver(driver)
	if err != nil {
		r.log.WithError(err).Errorf("Could not start %s", driver)
		r.failed = true
		return nil
	}

	base := r.cfg.BaseURL
	if err := d.Get(ctx, base+"/@tests/init"); err != nil {
		r.log.WithError(err).Debug("tests init failed")
	}

	var failing []string
	for _, test := range tests {
		if err := ctx.Err(); err != nil {
			d.Quit()
			return err
		}
		if st := r.runTest(ctx, d, test); st == statusFailed {
			failing = append(failing, test)
		}
	}

	result := "passed"
	if len(failing) > 0 {
		result = "failed"
	}
	if err := d.Get(ctx, base+"/@tests/end?result="+result); err != nil {
		r.log.WithError(err).Debug("tests end failed")
	}
	if err := d.Quit(); err != nil {
		r.log.WithError(err).Debug("driver quit failed")
	}

	r.saveResults(d.Name())

	if len(failing) == 0 {
		return nil
	}
	if attempt < r.cfg.MaxRetries {
		return r.runWithDriver(ctx, driver, failing, attempt+1)
	}
	r.failed = true
	return nil
}

// runTest visits the page of test and waits for its result file. A test
// that times out is reported but does not fail the run.
func (r *Runner) runTest(ctx context.Context, d Driver, test string) status {
	start := r.clock.Now()
	name := DisplayName(test)
	pad := r.list.MaxNameLen - len(name)
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(r.out, "~ %s... %s    ", name, strings.Repeat(" ", pad))

	st := statusFailed
	if err := d.Get(ctx, TestURL(r.cfg.BaseURL, r.list.SeleniumPath, test)); err != nil {
		r.log.WithError(err).WithField("test", test).Debug("navigation failed")
	} else {
		st = r.waitForResult(ctx, test)
	}

	fmt.Fprint(r.out, st.label())
	fmt.Fprintln(r.out, formatDuration(r.clock.Since(start)))
	return st
}

// waitForResult checks for the result file once per poll interval, at most
// TimeoutSeconds times.
func (r *Runner) waitForResult(ctx context.Context, test string) status {
	root := r.list.ResultRoot
	var st status
	check := func() error {
		switch {
		case exists(ResultFile(root, test, "passed")):
			st = statusPassed
		case exists(ResultFile(root, test, "failed")):
			st = statusFailed
		default:
			return errPending
		}
		return nil
	}

	// WithMaxRetries treats zero retries as unlimited.
	checks := r.cfg.TimeoutSeconds
	if checks <= 1 {
		if check() != nil {
			return statusTimeout
		}
		return st
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.pollInterval), uint64(checks-1)),
		ctx,
	)
	if err := backoff.Retry(check, b); err != nil {
		return statusTimeout
	}
	return st
}

// formatDuration renders "N min Ms", or "Ms" under a minute.
func formatDuration(d time.Duration) string {
	seconds := int(d/time.Second) % 60
	minutes := int(d/time.Minute) % 60
	if minutes > 0 {
		return fmt.Sprintf("%d min %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
