package main

import (
	"context"
	"flag"
	"io"

	"github.com/google/subcommands"

	"github.com/thesyncim/webdrive/pkg/launcher"
	"github.com/thesyncim/webdrive/pkg/runner"
)

// runnerCmd implements subcommands.Command for the runner process started
// by webdrive:test.
type runnerCmd struct {
	props runner.Properties
	out   io.Writer
	opts  []runner.Option // extra runner options, set by tests
}

var _ = subcommands.Command(&runnerCmd{})

func newRunnerCmd(out io.Writer) *runnerCmd {
	return &runnerCmd{props: runner.Properties{}, out: out}
}

func (*runnerCmd) Name() string     { return launcher.RunnerSubcommand }
func (*runnerCmd) Synopsis() string { return "run the tests of a started application" }
func (*runnerCmd) Usage() string {
	return `Usage: webdrive:runner [-D key=value]...

Fetches the test list of a running application, runs every test with the
configured drivers and leaves result.passed or result.failed in the result
directory.

`
}

func (c *runnerCmd) SetFlags(f *flag.FlagSet) {
	f.Var(c.props, "D", "runner property as key=value (may be repeated)")
}

func (c *runnerCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	lg := loggerFrom(ctx, c.out)
	if f.NArg() > 0 {
		lg.Errorf("unexpected arguments %q", f.Args())
		return subcommands.ExitUsageError
	}

	cfg, err := runner.ConfigFromProperties(c.props, lg)
	if err != nil {
		lg.Error(err)
		return subcommands.ExitStatus(launcher.ExitLaunchError)
	}

	opts := append([]runner.Option{runner.WithOutput(c.out, lg)}, c.opts...)
	passed, err := runner.New(cfg, opts...).Run(ctx)
	switch {
	case err != nil:
		return subcommands.ExitStatus(launcher.ExitLaunchError)
	case !passed:
		return subcommands.ExitStatus(launcher.ExitFailed)
	}
	return subcommands.ExitSuccess
}
