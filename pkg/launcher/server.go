package launcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ReadinessString is printed by Play once it accepts HTTP connections.
const ReadinessString = "Listening for HTTP"

// ErrServerExited is returned by WaitReady when the server process dies
// before printing ReadinessString.
var ErrServerExited = errors.New("server exited before it was ready")

// ServerConfig describes how to start the application server.
type ServerConfig struct {
	Args    []string // argv, Args[0] is the executable
	Dir     string   // working directory
	LogFile string   // stdout is redirected here, e.g. logs/system.out
	Env     []string // defaults to the current environment
}

// Server is a running application server process.
type Server struct {
	cmd     *exec.Cmd
	logFile string
	done    chan struct{}
	waitErr error
}

// StartServer launches the server with stdout going to cfg.LogFile.
// The log file is truncated first so that readiness detection only sees
// output from this run.
func StartServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	if len(cfg.Args) == 0 {
		return nil, errors.New("empty server command")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	out, err := os.Create(cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", cfg.LogFile, err)
	}

	cmd := exec.CommandContext(ctx, cfg.Args[0], cfg.Args[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = cfg.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.Stdout = out
	if err := cmd.Start(); err != nil {
		out.Close()
		return nil, fmt.Errorf("failed to start %s: %w", cfg.Args[0], err)
	}

	s := &Server{
		cmd:     cmd,
		logFile: cfg.LogFile,
		done:    make(chan struct{}),
	}
	go func() {
		s.waitErr = cmd.Wait()
		out.Close()
		close(s.done)
	}()
	return s, nil
}

// Pid returns the server's process id.
func (s *Server) Pid() int { return s.cmd.Process.Pid }

// Done is closed once the server process has exited.
func (s *Server) Done() <-chan struct{} { return s.done }

// Exited reports whether the server process has terminated.
func (s *Server) Exited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// WaitReady follows the server log, echoing every non-empty line to out,
// until a line contains ready. It fails with ErrServerExited if the
// process terminates first. pollInterval is how long to wait at the end
// of the log before looking again.
func (s *Server) WaitReady(ctx context.Context, out io.Writer, ready string, pollInterval time.Duration) error {
	f, err := os.Open(s.logFile)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.logFile, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var partial strings.Builder
	for {
		if s.Exited() {
			// Show whatever the server managed to print before dying.
			rest, _ := io.ReadAll(r)
			for _, line := range strings.Split(partial.String()+string(rest), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					fmt.Fprintln(out, line)
				}
			}
			return fmt.Errorf("%w: %v", ErrServerExited, s.waitErr)
		}

		chunk, err := r.ReadString('\n')
		partial.WriteString(chunk)
		if err == nil {
			line := strings.TrimSpace(partial.String())
			partial.Reset()
			if line == "" {
				continue
			}
			fmt.Fprintln(out, line)
			if strings.Contains(line, ready) {
				return nil
			}
			continue
		}
		if err != io.EOF {
			return fmt.Errorf("failed to read %s: %w", s.logFile, err)
		}

		// At the end of the log; the server has not written more yet.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
		case <-time.After(pollInterval):
		}
	}
}

// Stop waits up to grace for the server to exit on its own (normally after
// a /@kill request), then terminates the process and its children.
func (s *Server) Stop(grace time.Duration, lg *logrus.Logger) {
	select {
	case <-s.done:
		return
	case <-time.After(grace):
	}

	lg.WithField("pid", s.Pid()).Debug("server still running, terminating process tree")
	if err := terminateTree(int32(s.Pid())); err != nil {
		lg.WithError(err).Debug("failed to terminate server process tree")
		s.cmd.Process.Kill()
	}
	<-s.done
}
