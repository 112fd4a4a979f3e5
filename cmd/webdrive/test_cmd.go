package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/thesyncim/webdrive/pkg/launcher"
	"github.com/thesyncim/webdrive/pkg/playapp"
)

const (
	testCmdName     = "webdrive:test"
	seleniumCmdName = "webdrive:test-selenium"
)

// testCmd implements subcommands.Command to run the tests of an application.
type testCmd struct {
	name     string
	opts     launcher.Options
	id       string
	playHome string
	out      io.Writer

	// exe and serverCmd override the runner binary and the server command.
	// They are only set by tests.
	exe       string
	serverCmd []string
}

var _ = subcommands.Command(&testCmd{})

func newTestCmd(name string, out io.Writer) *testCmd {
	return &testCmd{name: name, out: out}
}

func (*testCmd) Synopsis() string { return "run the application tests through web drivers" }
func (c *testCmd) Name() string   { return c.name }
func (c *testCmd) Usage() string {
	return fmt.Sprintf(`Usage: %s [flag]... [app-path] [--unit] [--functional] [--selenium] [-p <browser>] [server-arg]...

Starts the application with the test framework id, waits until it listens for
HTTP and runs its tests. Exits with 1 if some tests failed.

`, c.name)
}

func (c *testCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.opts.Unit, "unit", false, "run unit tests")
	f.BoolVar(&c.opts.Functional, "functional", false, "run functional tests")
	f.BoolVar(&c.opts.Selenium, "selenium", false, "run selenium tests")
	f.StringVar(&c.opts.PhantomJS, "phantomjs", "", "browser binary used by the web drivers")
	f.StringVar(&c.opts.PhantomJS, "p", "", "shorthand for -phantomjs")
	f.StringVar(&c.id, "id", "test", "framework id the application runs with")
	f.StringVar(&c.playHome, "play-home", os.Getenv("PLAY_HOME"), "Play framework installation")
}

func (c *testCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path, rest := ".", f.Args()
	if len(rest) > 0 && !strings.HasPrefix(rest[0], "-") {
		path, rest = rest[0], rest[1:]
	}
	opts := c.opts.ParseArgs(rest)

	lg := loggerFrom(ctx, c.out)
	app, err := playapp.Load(path, c.id, c.playHome)
	if err != nil {
		lg.Error(err)
		return subcommands.ExitStatus(launcher.ExitLaunchError)
	}

	cfg := launcher.DefaultConfig(app, opts)
	cfg.Stdout = c.out
	cfg.Log = lg
	cfg.Executable = c.exe
	cfg.ServerCommand = c.serverCmd
	return subcommands.ExitStatus(launcher.New(cfg).Run(ctx))
}
