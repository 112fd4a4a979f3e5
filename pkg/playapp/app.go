// Package playapp models a Play 1.x application on disk: its layout, its
// application.conf and the command used to start it.
package playapp

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magiconair/properties"
)

// DefaultHTTPPort is the port Play listens on when http.port is not set.
const DefaultHTTPPort = "9000"

// ServerClass is the main class of the Play runtime.
const ServerClass = "play.server.Server"

// ErrNotApplication is returned by Check when the directory does not look
// like a Play application.
var ErrNotApplication = errors.New("conf/application.conf missing")

// Application is a Play application rooted at Path.
type Application struct {
	Path     string // application root
	ID       string // framework id, e.g. "test"
	PlayHome string // Play framework installation, may be empty

	conf *properties.Properties
}

// Load reads path/conf/application.conf. A missing file is not an error here;
// Check reports it so callers can print a friendlier message.
func Load(path, id, playHome string) (*Application, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	app := &Application{
		Path:     abs,
		ID:       id,
		PlayHome: playHome,
		conf:     properties.NewProperties(),
	}

	if _, err := os.Stat(app.ConfPath()); os.IsNotExist(err) {
		return app, nil
	}

	// Play expands ${...} itself at runtime, so keep values verbatim.
	l := &properties.Loader{
		Encoding:         properties.UTF8,
		DisableExpansion: true,
	}
	conf, err := l.LoadFile(app.ConfPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", app.ConfPath(), err)
	}
	app.conf = conf
	return app, nil
}

// ConfPath returns the location of application.conf.
func (a *Application) ConfPath() string {
	return filepath.Join(a.Path, "conf", "application.conf")
}

// Check verifies that the application layout is usable.
func (a *Application) Check() error {
	if _, err := os.Stat(a.ConfPath()); err != nil {
		return fmt.Errorf("%s: %w", a.Path, ErrNotApplication)
	}
	return nil
}

// IsTestFrameworkID reports whether id selects a test configuration:
// either "test" or "test-<something>".
func IsTestFrameworkID(id string) bool {
	return id == "test" || (strings.HasPrefix(id, "test-") && len(id) >= 6)
}

// ReadConf returns the value of key, preferring the framework-id specific
// "%<id>.<key>" entry. Missing keys yield "".
func (a *Application) ReadConf(key string) string {
	if v, ok := a.conf.Get("%" + a.ID + "." + key); ok {
		return strings.TrimSpace(v)
	}
	if v, ok := a.conf.Get(key); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// LogPath is the directory holding system.out.
func (a *Application) LogPath() string { return filepath.Join(a.Path, "logs") }

// TmpDir is Play's compilation cache.
func (a *Application) TmpDir() string { return filepath.Join(a.Path, "tmp") }

// TestResultDir is where Play and the runner drop test results.
func (a *Application) TestResultDir() string { return filepath.Join(a.Path, "test-result") }

// Classpath lists the entries needed to start the Play runtime, in the order
// Play itself uses: application conf, application jars, framework jars.
func (a *Application) Classpath() []string {
	cp := []string{filepath.Join(a.Path, "conf")}
	cp = append(cp, globSorted(filepath.Join(a.Path, "lib", "*.jar"))...)
	if a.PlayHome != "" {
		fw := filepath.Join(a.PlayHome, "framework")
		cp = append(cp, globSorted(filepath.Join(fw, "play-*.jar"))...)
		cp = append(cp, globSorted(filepath.Join(fw, "lib", "*.jar"))...)
	}
	return cp
}

// JoinClasspath joins entries with the platform list separator
// (":" on Unix, ";" on Windows).
func JoinClasspath(cp []string) string {
	return strings.Join(cp, string(os.PathListSeparator))
}

func globSorted(pattern string) []string {
	m, _ := filepath.Glob(pattern) // only fails on a malformed pattern
	sort.Strings(m)
	return m
}

// JavaPath locates the java executable, preferring JAVA_HOME.
func JavaPath() string {
	if home := os.Getenv("JAVA_HOME"); home != "" {
		name := "java"
		if os.PathSeparator == '\\' {
			name = "java.exe"
		}
		return filepath.Join(home, "bin", name)
	}
	if p, err := exec.LookPath("java"); err == nil {
		return p
	}
	return "java"
}

// JavaCmd builds the argument vector that starts the Play server.
// args are appended after the main class.
func (a *Application) JavaCmd(args []string) []string {
	cmd := []string{JavaPath()}
	cmd = append(cmd, strings.Fields(a.ReadConf("jvm.memory"))...)
	cmd = append(cmd,
		"-Dfile.encoding=utf-8",
		"-Dapplication.path="+a.Path,
		"-Dplay.id="+a.ID,
		"-classpath", JoinClasspath(a.Classpath()),
		ServerClass,
	)
	return append(cmd, args...)
}

// ServerCmd returns the command that starts the application server.
// webdrive.server.command replaces the java command line when configured.
func (a *Application) ServerCmd(args []string) []string {
	if custom := strings.Fields(a.ReadConf("webdrive.server.command")); len(custom) > 0 {
		return append(custom, args...)
	}
	return a.JavaCmd(args)
}

// Endpoint resolves the protocol and port the server will listen on.
// https.port wins over http.port.
func (a *Application) Endpoint() (protocol, port string) {
	if p := a.ReadConf("https.port"); p != "" {
		return "https", p
	}
	if p := a.ReadConf("http.port"); p != "" {
		return "http", p
	}
	return "http", DefaultHTTPPort
}
