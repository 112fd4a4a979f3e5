package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/webdrive/cmd/fakeplay/server"
	"github.com/thesyncim/webdrive/pkg/console"
)

// startFakePlay serves tests from a fake Play application.
func startFakePlay(t *testing.T, tests []string, outcome func(string, int) server.Result) *server.Server {
	t.Helper()
	cfg := server.DefaultConfig()
	cfg.ResultDir = t.TempDir()
	cfg.Tests = tests
	cfg.Outcome = outcome

	srv, err := server.NewServer(cfg)
	require.NoError(t, err)
	_, err = srv.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv
}

func testConfig(srv *server.Server) Config {
	return Config{
		BaseURL:        "http://localhost:" + srv.Port(),
		TimeoutSeconds: 3,
		MaxRetries:     DefaultRetry,
		RunUnit:        true,
		RunSelenium:    true,
		Drivers:        []string{DriverHTTP},
	}
}

func newTestRunner(cfg Config, out *bytes.Buffer, opts ...Option) *Runner {
	opts = append([]Option{
		WithOutput(out, console.New(out, false)),
		WithPollInterval(5 * time.Millisecond),
	}, opts...)
	return New(cfg, opts...)
}

func resultRoot(t *testing.T, srv *server.Server) string {
	t.Helper()
	resp, err := http.Get("http://localhost:" + srv.Port() + "/@tests.list")
	require.NoError(t, err)
	defer resp.Body.Close()
	l, err := ParseTestList(resp.Body)
	require.NoError(t, err)
	return l.ResultRoot
}

func TestRunAllPassed(t *testing.T) {
	srv := startFakePlay(t, []string{"ApplicationTest.class", "Application.test.html"}, nil)
	root := resultRoot(t, srv)
	require.NoError(t, os.WriteFile(filepath.Join(root, "application.log"), []byte("log"), 0o644))

	var out bytes.Buffer
	passed, err := newTestRunner(testConfig(srv), &out).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, passed)

	assert.FileExists(t, filepath.Join(root, PassedMarker))
	assert.NoFileExists(t, filepath.Join(root, FailedMarker))
	assert.FileExists(t, filepath.Join(root, "application.log"), "application.log stays in the root")
	assert.FileExists(t, filepath.Join(root, DriverHTMLUnit, "ApplicationTest.class.passed.html"))
	assert.FileExists(t, filepath.Join(root, DriverHTTP, "Application.test.html.passed.html"))

	assert.Equal(t, []string{"passed", "passed"}, srv.Ends())
	assert.Equal(t, 1, srv.Attempts("ApplicationTest.class"))
	assert.Equal(t, 1, srv.Attempts("Application.test.html"))

	o := out.String()
	assert.Contains(t, o, "~ 1 selenium test to run\n")
	assert.Contains(t, o, "~ 1 other test to run\n")
	assert.Contains(t, o, "~ Starting tests with htmlunit\n")
	assert.Contains(t, o, "~ Starting tests with http\n")
	assert.Contains(t, o, "~ Retry #  1 / 3\n")
	assert.Contains(t, o, "~ ApplicationTest...     PASSED      0s\n")
	assert.Contains(t, o, "~ Application... "+strings.Repeat(" ", 4)+"    PASSED      0s\n")
}

func TestRunRequestOrder(t *testing.T) {
	srv := startFakePlay(t, []string{"ApplicationTest.class"}, nil)
	cfg := testConfig(srv)
	cfg.RunSelenium = false

	_, err := newTestRunner(cfg, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/@tests.list",
		"/@tests/init",
		"/@tests/ApplicationTest.class",
		"/@tests/end",
	}, srv.Requests())
}

func TestRunRetriesFailingTests(t *testing.T) {
	srv := startFakePlay(t, []string{"FlakyTest.class", "StableTest.class"}, func(test string, attempt int) server.Result {
		if test == "FlakyTest.class" && attempt == 1 {
			return server.Fail
		}
		return server.Pass
	})
	cfg := testConfig(srv)
	cfg.RunSelenium = false

	var out bytes.Buffer
	passed, err := newTestRunner(cfg, &out).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, passed)

	assert.Equal(t, 2, srv.Attempts("FlakyTest.class"))
	assert.Equal(t, 1, srv.Attempts("StableTest.class"), "only failing tests are retried")
	assert.Equal(t, []string{"failed", "passed"}, srv.Ends())
	assert.Contains(t, out.String(), "FAILED   !  ")
	assert.Contains(t, out.String(), "~ Retry #  2 / 3\n")
	assert.FileExists(t, filepath.Join(resultRoot(t, srv), PassedMarker))
}

func TestRunGivesUpAfterRetries(t *testing.T) {
	srv := startFakePlay(t, []string{"BrokenTest.class"}, func(string, int) server.Result {
		return server.Fail
	})
	cfg := testConfig(srv)
	cfg.RunSelenium = false
	cfg.MaxRetries = 1

	passed, err := newTestRunner(cfg, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, passed)

	assert.Equal(t, 2, srv.Attempts("BrokenTest.class"))
	root := resultRoot(t, srv)
	assert.FileExists(t, filepath.Join(root, FailedMarker))
	assert.NoFileExists(t, filepath.Join(root, PassedMarker))
}

func TestRunTimeout(t *testing.T) {
	srv := startFakePlay(t, []string{"Slow.test.html"}, func(string, int) server.Result {
		return server.Hang
	})
	cfg := testConfig(srv)
	cfg.RunUnit = false
	cfg.TimeoutSeconds = 2

	var out bytes.Buffer
	passed, err := newTestRunner(cfg, &out).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, passed, "a timed out test does not fail the run")
	assert.Contains(t, out.String(), "TIMEOUT  ?  ")
	assert.Equal(t, 1, srv.Attempts("Slow.test.html"), "timed out tests are not retried")
	assert.Equal(t, []string{"passed"}, srv.Ends())
	assert.FileExists(t, filepath.Join(resultRoot(t, srv), PassedMarker))
}

func TestRunTimeoutSingleCheck(t *testing.T) {
	for _, timeout := range []int{1, 0, -5} {
		t.Run(fmt.Sprint(timeout), func(t *testing.T) {
			srv := startFakePlay(t, []string{"Slow.test.html"}, func(string, int) server.Result {
				return server.Hang
			})
			cfg := testConfig(srv)
			cfg.RunUnit = false
			cfg.TimeoutSeconds = timeout

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			var out bytes.Buffer
			passed, err := newTestRunner(cfg, &out).Run(ctx)
			require.NoError(t, err, "result polling must stop after one check")
			assert.True(t, passed)
			assert.Contains(t, out.String(), "TIMEOUT  ?  ")
			assert.FileExists(t, filepath.Join(resultRoot(t, srv), PassedMarker))
		})
	}
}

func TestRunSkipsDisabledGroups(t *testing.T) {
	srv := startFakePlay(t, []string{"ApplicationTest.class", "Application.test.html"}, nil)
	cfg := testConfig(srv)
	cfg.RunUnit = false
	cfg.RunSelenium = false

	passed, err := newTestRunner(cfg, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, passed)
	assert.Equal(t, 0, srv.Attempts("ApplicationTest.class"))
	assert.Equal(t, 0, srv.Attempts("Application.test.html"))
	assert.FileExists(t, filepath.Join(resultRoot(t, srv), PassedMarker))
}

func TestRunBadTestList(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "<html>compilation error</html>")
	}))
	defer ts.Close()

	var out bytes.Buffer
	_, err := newTestRunner(Config{BaseURL: ts.URL}, &out).Run(context.Background())
	assert.ErrorIs(t, err, ErrBadTestList)
	assert.Contains(t, out.String(), "~ The application does not start. There are errors: ")
}

func TestRunDriverFailure(t *testing.T) {
	srv := startFakePlay(t, []string{"Application.test.html"}, nil)
	cfg := testConfig(srv)
	cfg.RunUnit = false

	factory := func(name string) (Driver, error) {
		return nil, errors.New("chrome not found")
	}
	var out bytes.Buffer
	passed, err := newTestRunner(cfg, &out, WithDriverFactory(factory)).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, passed)
	assert.Contains(t, out.String(), "~ Error: Could not start http")
	assert.FileExists(t, filepath.Join(resultRoot(t, srv), FailedMarker))
}

// slowDriver advances a fake clock whenever a test page is visited.
type slowDriver struct {
	Driver
	clock *fakeclock.FakeClock
	delay time.Duration
}

func (d *slowDriver) Get(ctx context.Context, url string) error {
	if strings.Contains(url, "SlowTest") {
		d.clock.Increment(d.delay)
	}
	return d.Driver.Get(ctx, url)
}

func TestRunReportsDuration(t *testing.T) {
	srv := startFakePlay(t, []string{"SlowTest.class"}, nil)
	cfg := testConfig(srv)
	cfg.RunSelenium = false

	clk := fakeclock.NewFakeClock(time.Unix(1000000000, 0))
	factory := func(name string) (Driver, error) {
		return &slowDriver{
			Driver: &httpDriver{name: name, client: http.DefaultClient},
			clock:  clk,
			delay:  65 * time.Second,
		}, nil
	}

	var out bytes.Buffer
	_, err := newTestRunner(cfg, &out, WithDriverFactory(factory), WithClock(clk)).Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "PASSED      1 min 5s\n")
}

func TestRunCanceled(t *testing.T) {
	srv := startFakePlay(t, []string{"ATest.class", "BTest.class"}, nil)
	cfg := testConfig(srv)
	cfg.RunSelenium = false

	ctx, cancel := context.WithCancel(context.Background())
	factory := func(name string) (Driver, error) {
		return &cancelingDriver{Driver: &httpDriver{name: name, client: http.DefaultClient}, cancel: cancel}, nil
	}
	_, err := newTestRunner(cfg, &bytes.Buffer{}, WithDriverFactory(factory)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(resultRoot(t, srv), PassedMarker))
}

// cancelingDriver cancels the run once the first test page is visited.
type cancelingDriver struct {
	Driver
	cancel context.CancelFunc
}

func (d *cancelingDriver) Get(ctx context.Context, url string) error {
	err := d.Driver.Get(ctx, url)
	if strings.Contains(url, "ATest") {
		d.cancel()
	}
	return err
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", formatDuration(0))
	assert.Equal(t, "59s", formatDuration(59*time.Second+900*time.Millisecond))
	assert.Equal(t, "2 min 0s", formatDuration(2*time.Minute))
}
