package launcher

import "strings"

// Options are the switches understood by webdrive:test.
type Options struct {
	Unit       bool   // run unit tests
	Functional bool   // run functional tests
	Selenium   bool   // run selenium tests
	PhantomJS  string // browser binary handed to the runner

	// ServerArgs is whatever was not consumed; it is passed to the server.
	ServerArgs []string
}

// ParseArgs consumes the ad hoc flags --unit, --functional, --selenium and
// the browser path (--phantomjs=<path>, --phantomjs <path>, -p <path>,
// -p<path>). Switches already set in o are kept.
//
// Any single-dash argument starting with -p is taken as -p<path>, so a
// server argument such as -pidfile.path=x becomes the browser path
// "idfile.path=x" and then fails the browser existence check. Pass such
// arguments through application.conf instead.
func (o Options) ParseArgs(args []string) Options {
	var rest []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--unit":
			o.Unit = true
		case a == "--functional":
			o.Functional = true
		case a == "--selenium":
			o.Selenium = true
		case strings.HasPrefix(a, "--phantomjs="):
			o.PhantomJS = strings.TrimPrefix(a, "--phantomjs=")
		case (a == "--phantomjs" || a == "-p") && i+1 < len(args):
			i++
			o.PhantomJS = args[i]
		case strings.HasPrefix(a, "-p") && !strings.HasPrefix(a, "--") && len(a) > 2:
			o.PhantomJS = a[2:]
		default:
			rest = append(rest, a)
		}
	}
	o.ServerArgs = rest
	return o
}

// ParseArgs is shorthand for Options{}.ParseArgs(args).
func ParseArgs(args []string) Options {
	return Options{}.ParseArgs(args)
}

// RunnerProperties returns the runner properties implied by the switches,
// in the order the switches are documented.
func (o Options) RunnerProperties() []string {
	var props []string
	if o.Unit {
		props = append(props, "runUnitTests=true")
	}
	if o.Functional {
		props = append(props, "runFunctionalTests=true")
	}
	if o.Selenium {
		props = append(props, "runSeleniumTests=true")
	}
	if o.PhantomJS != "" {
		props = append(props, "phantomjs.binary.path="+o.PhantomJS)
	}
	return props
}
