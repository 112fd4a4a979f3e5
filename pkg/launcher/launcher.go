// Package launcher runs a Play application under the webdrive test runner:
// it starts the server, waits until it listens, runs the browser tests
// against it in a separate process and turns the marker files left by the
// runner into an exit code.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thesyncim/webdrive/pkg/console"
	"github.com/thesyncim/webdrive/pkg/playapp"
)

// Config holds launcher configuration options.
type Config struct {
	App     *playapp.Application
	Options Options

	// Executable is the webdrive binary re-executed as the runner.
	// Defaults to os.Executable().
	Executable string
	// ServerCommand overrides the command from App.ServerCmd.
	ServerCommand []string
	// RunnerCommand overrides the command from RunnerArgs.
	RunnerCommand []string

	Stdout     io.Writer      // server log echo and runner output
	Stderr     io.Writer      // runner stderr
	Log        *logrus.Logger // "~" console messages
	KillClient *http.Client   // used for /@kill

	PollInterval time.Duration // how often to re-read the server log at EOF
	StopGrace    time.Duration // how long the server gets to exit after /@kill
}

// DefaultConfig returns a configuration writing to the process stdout.
func DefaultConfig(app *playapp.Application, opts Options) Config {
	return Config{
		App:          app,
		Options:      opts,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		Log:          console.New(os.Stdout, false),
		KillClient:   NewKillClient(),
		PollInterval: 100 * time.Millisecond,
		StopGrace:    10 * time.Second,
	}
}

// Launcher orchestrates one test run.
type Launcher struct {
	cfg Config
}

// New creates a Launcher. Zero fields of cfg get their defaults.
func New(cfg Config) *Launcher {
	def := DefaultConfig(cfg.App, cfg.Options)
	if cfg.Stdout == nil {
		cfg.Stdout = def.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = def.Stderr
	}
	if cfg.Log == nil {
		cfg.Log = def.Log
	}
	if cfg.KillClient == nil {
		cfg.KillClient = def.KillClient
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = def.StopGrace
	}
	return &Launcher{cfg: cfg}
}

// Run performs the whole sequence and returns the process exit code:
// ExitPassed, ExitFailed or ExitLaunchError.
func (l *Launcher) Run(ctx context.Context) int {
	app, lg := l.cfg.App, l.cfg.Log

	if err := app.Check(); err != nil {
		lg.Info("Oops. conf/application.conf missing.")
		lg.WithError(err).Debug("application check failed")
		return ExitLaunchError
	}
	if !playapp.IsTestFrameworkID(app.ID) {
		app.ID = "test"
	}

	lg.Info("Running tests with webdriver")
	lg.Info("Ctrl+C to stop")
	lg.Info("")

	lg.Infof("Deleting %s", filepath.Clean(app.TmpDir()))
	if err := CleanDir(app.TmpDir()); err != nil {
		lg.WithError(err).Warn("could not delete tmp directory")
	}
	lg.Info("")

	protocol, port := app.Endpoint()
	killURL := KillURL(protocol, port)
	l.kill(ctx, killURL)

	opts := l.cfg.Options
	if opts.PhantomJS != "" {
		if _, err := os.Stat(opts.PhantomJS); err != nil {
			lg.Infof("Browser binary %s not found. Check -p <path> or --phantomjs=<path>", opts.PhantomJS)
			return ExitLaunchError
		}
		lg.Infof("use phantomjs path : %s", opts.PhantomJS)
		lg.Info("~~~~")
	}

	resultDir := app.TestResultDir()
	if err := CleanDir(resultDir); err != nil {
		lg.WithError(err).Warn("could not delete test-result directory")
	}

	serverCmd := l.cfg.ServerCommand
	if serverCmd == nil {
		serverCmd = app.ServerCmd(opts.ServerArgs)
	}
	lg.WithField("cmd", serverCmd).Debug("starting server")
	srv, err := StartServer(ctx, ServerConfig{
		Args:    serverCmd,
		Dir:     app.Path,
		LogFile: filepath.Join(app.LogPath(), "system.out"),
	})
	if err != nil {
		lg.WithError(err).Debug("server launch failed")
		fmt.Fprintln(l.cfg.Stdout, "Could not execute the java executable, please make sure the JAVA_HOME environment variable is set properly (the java executable should reside at JAVA_HOME/bin/java). ")
		return ExitLaunchError
	}

	if err := srv.WaitReady(ctx, l.cfg.Stdout, ReadinessString, l.cfg.PollInterval); err != nil {
		lg.WithError(err).Debug("server did not become ready")
		lg.Info("")
		lg.Info("Oops, application has not started?")
		lg.Info("")
		srv.Stop(0, lg)
		return ExitLaunchError
	}

	lg.Info("")
	runnerStatus, err := l.runTests(ctx, protocol, port)
	if err != nil {
		lg.WithError(err).Debug("runner launch failed")
		fmt.Fprintln(l.cfg.Stdout, "Could not execute web driver.")
		l.kill(ctx, killURL)
		srv.Stop(l.cfg.StopGrace, lg)
		return ExitLaunchError
	}
	lg.Info("")

	l.kill(ctx, killURL)
	srv.Stop(l.cfg.StopGrace, lg)

	outcome := ReadOutcome(resultDir)
	switch outcome {
	case OutcomePassed:
		lg.Info("All tests passed")
		lg.Info("")
	case OutcomeFailed:
		lg.Infof("Some tests have failed. See file://%s for results", resultDir)
		lg.Info("")
	default:
		lg.WithField("status", runnerStatus).Debug("runner left no result marker")
	}
	lg.WithField("outcome", outcome).Debug("run finished")
	return outcome.ExitCode()
}

// kill sends a best-effort /@kill.
func (l *Launcher) kill(ctx context.Context, url string) {
	if err := Kill(ctx, l.cfg.KillClient, url); err != nil {
		l.cfg.Log.WithError(err).WithField("url", url).Debug("kill request failed")
	}
}

// runTests runs the test runner process to completion and returns its exit
// status. Only a failure to run it at all is an error; the outcome itself
// is read from the markers.
func (l *Launcher) runTests(ctx context.Context, protocol, port string) (int, error) {
	args := l.cfg.RunnerCommand
	if args == nil {
		exe := l.cfg.Executable
		if exe == "" {
			var err error
			if exe, err = os.Executable(); err != nil {
				return 0, fmt.Errorf("failed to locate webdrive executable: %w", err)
			}
		}
		args = RunnerArgs(exe, l.cfg.App, l.cfg.Options, protocol, port)
	}
	l.cfg.Log.WithField("cmd", args).Debug("starting runner")

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = os.Environ()
	cmd.Stdout = l.cfg.Stdout
	cmd.Stderr = l.cfg.Stderr
	err := cmd.Run()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		l.cfg.Log.WithField("status", exitErr.ExitCode()).Debug("runner exited")
		return exitErr.ExitCode(), nil
	}
	return 0, err
}
