// Package server provides an importable stand-in for a Play application
// running in test mode. It serves the /@tests endpoints the webdrive runner
// drives and writes result files the way Play does, so the launcher and the
// runner can be tested without a JVM.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultSeleniumPath is where Play serves the Selenium TestRunner.
const DefaultSeleniumPath = "/@tests/selenium/TestRunner.html"

// Result is the outcome the fake reports for one execution of a test.
type Result int

const (
	Pass Result = iota
	Fail
	Hang // never write a result file
)

// Config holds server configuration options.
type Config struct {
	Addr         string        // Listen address (e.g., ":9000" or ":0" for random port)
	ResultDir    string        // where result files are written
	SeleniumPath string        // URL part of the Selenium runner
	Tests        []string      // entries of /@tests.list
	ReadTimeout  time.Duration // HTTP read timeout
	WriteTimeout time.Duration // HTTP write timeout

	// Outcome decides the result of the attempt-th execution (starting
	// at 1) of test. Nil means every test passes.
	Outcome func(test string, attempt int) Result

	// OnKill is called after /@kill has been answered.
	OnKill func()
}

// DefaultConfig returns a configuration suitable for testing.
// Uses ":0" to bind to a random available port.
func DefaultConfig() Config {
	return Config{
		Addr:         ":0",
		SeleniumPath: DefaultSeleniumPath,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is an importable fake Play test server.
type Server struct {
	cfg        Config
	httpServer *http.Server
	listener   net.Listener
	addr       string
	mu         sync.Mutex
	running    bool

	requests []string       // paths in arrival order
	attempts map[string]int // executions per test
	ends     []string       // result= values of /@tests/end
	kills    int
}

// NewServer creates a new server with the given configuration.
// The server is not started until Start() is called.
func NewServer(cfg Config) (*Server, error) {
	if cfg.ResultDir == "" {
		return nil, fmt.Errorf("result directory is required")
	}
	if cfg.SeleniumPath == "" {
		cfg.SeleniumPath = DefaultSeleniumPath
	}

	s := &Server{
		cfg:      cfg,
		attempts: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/@tests.list", s.handleList)
	mux.HandleFunc("/@tests/init", s.handleInit)
	mux.HandleFunc("/@tests/end", s.handleEnd)
	mux.HandleFunc("/@kill", s.handleKill)
	mux.HandleFunc(cfg.SeleniumPath, s.handleSelenium)
	mux.HandleFunc("/@tests/", s.handleTest)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.record(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// Start begins listening and serving HTTP requests.
// Returns the actual address the server is listening on (useful when port is 0).
// This method is non-blocking - the server runs in a goroutine.
func (s *Server) Start() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.addr, nil
	}

	if err := os.MkdirAll(s.cfg.ResultDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create result directory: %w", err)
	}

	// Create listener to get actual port
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = ln
	s.addr = ln.Addr().String()
	s.running = true

	go s.httpServer.Serve(ln)

	return s.addr, nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the address the server is listening on.
// Returns empty string if server is not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Port returns the port part of Addr.
func (s *Server) Port() string {
	_, port, _ := net.SplitHostPort(s.Addr())
	return port
}

// Requests returns the request paths seen so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Attempts returns how many times test was executed.
func (s *Server) Attempts(test string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[test]
}

// Ends returns the result values reported to /@tests/end.
func (s *Server) Ends() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ends...)
}

// Kills returns the number of /@kill requests.
func (s *Server) Kills() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kills
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "---")
	fmt.Fprintln(w, s.cfg.ResultDir)
	fmt.Fprintln(w, s.cfg.SeleniumPath)
	for _, t := range s.cfg.Tests {
		fmt.Fprintln(w, t)
	}
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, renderPage("Tests initialized", "init"))
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	result := r.URL.Query().Get("result")
	s.mu.Lock()
	s.ends = append(s.ends, result)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, renderPage("Tests ended", result))
}

func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.kills++
	s.mu.Unlock()
	fmt.Fprintln(w, "Killed")
	if s.cfg.OnKill != nil {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		go s.cfg.OnKill()
	}
}

// handleSelenium serves the Selenium runner; the suite under test is
// named by the "test" parameter: /@tests/<test>.suite.
func (s *Server) handleSelenium(w http.ResponseWriter, r *http.Request) {
	suite := r.URL.Query().Get("test")
	test := strings.TrimSuffix(strings.TrimPrefix(suite, "/@tests/"), ".suite")
	if test == "" {
		http.Error(w, "missing test parameter", http.StatusBadRequest)
		return
	}
	s.execute(w, test)
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	test := strings.TrimPrefix(r.URL.Path, "/@tests/")
	if test == "" {
		http.NotFound(w, r)
		return
	}
	s.execute(w, test)
}

// execute runs test and writes <ResultDir>/<test>.<passed|failed>.html,
// with "/" in the test name replaced by ".", as Play does.
func (s *Server) execute(w http.ResponseWriter, test string) {
	s.mu.Lock()
	s.attempts[test]++
	attempt := s.attempts[test]
	s.mu.Unlock()

	result := Pass
	if s.cfg.Outcome != nil {
		result = s.cfg.Outcome(test, attempt)
	}

	w.Header().Set("Content-Type", "text/html")
	if result == Hang {
		fmt.Fprint(w, renderPage(test, "running"))
		return
	}

	status := "passed"
	if result == Fail {
		status = "failed"
	}
	page := renderPage(test, status)
	name := strings.ReplaceAll(test, "/", ".") + "." + status + ".html"
	if err := os.WriteFile(filepath.Join(s.cfg.ResultDir, name), []byte(page), 0o644); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	fmt.Fprint(w, page)
}
