package launcher

import (
	"fmt"

	"github.com/thesyncim/webdrive/pkg/playapp"
)

// RunnerSubcommand is the webdrive subcommand that runs the browser tests.
const RunnerSubcommand = "webdrive:runner"

// RunnerArgs builds the argument vector of the test runner process.
// exe is the webdrive binary. Every property becomes the token pair
// "-D", "key=value"; the option properties come first, then the settings
// read from application.conf, then the URL of the server under test.
func RunnerArgs(exe string, app *playapp.Application, opts Options, protocol, port string) []string {
	props := opts.RunnerProperties()
	props = append(props,
		"webdrive.classes="+app.ReadConf("webdrive.classes"),
		"webdrive.timeout="+app.ReadConf("webdrive.timeout"),
		"webdrive.htmlunit.js.enable="+app.ReadConf("webdrive.htmlunit.js.enable"),
		"webdrive.test.retry="+app.ReadConf("webdrive.test.retry"),
		"application.baseUrl="+app.ReadConf("webdrive.test.base.url"),
		fmt.Sprintf("application.url=%s://localhost:%s", protocol, port),
	)

	args := []string{exe, RunnerSubcommand}
	for _, p := range props {
		args = append(args, "-D", p)
	}
	return args
}
