// Command webdrive runs the tests of a Play application through a browser.
//
// Usage:
//
//	webdrive webdrive:test [flags] [app-path] [--unit] [--functional] [--selenium] [-p <browser>]
//
// webdrive:test starts the application in test mode, waits until it listens
// for HTTP, then runs the test runner (webdrive:runner, the same binary in a
// child process) against it. The exit code is 1 if tests failed and -1 if
// the application or the runner could not be started.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"

	"github.com/thesyncim/webdrive/pkg/console"
)

// doMain implements the main body of the program. It's a separate function so
// that its deferred functions will run before os.Exit makes the program exit
// immediately.
func doMain() int {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(newTestCmd(testCmdName, os.Stdout), "")
	subcommands.Register(newTestCmd(seleniumCmdName, os.Stdout), "")
	subcommands.Register(newRunnerCmd(os.Stdout), "")

	verbose := flag.Bool("verbose", false, "use verbose logging")
	flag.Parse()

	lg := console.New(os.Stdout, *verbose)
	ctx := withLogger(context.Background(), lg)

	// Interrupts cancel the context, which kills the server and runner
	// processes started with it.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return int(subcommands.Execute(ctx))
}

func main() {
	os.Exit(doMain())
}
