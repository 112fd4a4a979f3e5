package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T, cfg Config) (*Server, string) {
	t.Helper()
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	if _, err := srv.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv, "http://localhost:" + srv.Port()
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("HTTP GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestServerStartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResultDir = t.TempDir()
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}

	// Start server
	addr, err := srv.Start()
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	// Verify we got a real address (not :0)
	if addr == "" || addr == ":0" {
		t.Errorf("Start() returned invalid address: %q", addr)
	}
	if got := srv.Addr(); got != addr {
		t.Errorf("Addr() = %q, want %q", got, addr)
	}

	url := "http://" + addr + "/@tests/init"
	if body := get(t, url); !strings.Contains(body, "Tests initialized") {
		t.Error("init page doesn't contain expected HTML")
	}

	// Shutdown server
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}

	// Verify server is stopped (should fail to connect)
	if _, err := http.Get(url); err == nil {
		t.Error("Expected connection error after shutdown, but request succeeded")
	}
}

func TestNewServerRequiresResultDir(t *testing.T) {
	if _, err := NewServer(DefaultConfig()); err == nil {
		t.Error("NewServer() without ResultDir succeeded, want error")
	}
}

func TestServerDoubleStart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResultDir = t.TempDir()
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	defer srv.Shutdown(context.Background())

	addr1, err := srv.Start()
	if err != nil {
		t.Fatalf("First Start() failed: %v", err)
	}
	addr2, err := srv.Start()
	if err != nil {
		t.Fatalf("Second Start() failed: %v", err)
	}
	if addr1 != addr2 {
		t.Errorf("Second Start() returned different address: %q vs %q", addr1, addr2)
	}
}

func TestTestList(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResultDir = t.TempDir()
	cfg.Tests = []string{"ApplicationTest.class", "Application.test.html"}
	_, base := newTestServer(t, cfg)

	want := "---\n" + cfg.ResultDir + "\n" + DefaultSeleniumPath + "\nApplicationTest.class\nApplication.test.html\n"
	if got := get(t, base+"/@tests.list"); got != want {
		t.Errorf("/@tests.list = %q, want %q", got, want)
	}
}

func TestResultFiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResultDir = t.TempDir()
	cfg.Outcome = func(test string, attempt int) Result {
		switch {
		case test == "models.UserTest.class" && attempt == 1:
			return Fail
		case test == "Slow.test.html":
			return Hang
		}
		return Pass
	}
	srv, base := newTestServer(t, cfg)

	get(t, base+"/@tests/models.UserTest.class")
	get(t, base+"/@tests/models.UserTest.class")
	get(t, base+DefaultSeleniumPath+"?test=/@tests/Slow.test.html.suite&auto=true")
	get(t, base+DefaultSeleniumPath+"?test=/@tests/sub/Home.test.html.suite&auto=true")

	for _, name := range []string{
		"models.UserTest.class.failed.html",
		"models.UserTest.class.passed.html",
		"sub.Home.test.html.passed.html",
	} {
		if _, err := os.Stat(filepath.Join(cfg.ResultDir, name)); err != nil {
			t.Errorf("result file %s missing: %v", name, err)
		}
	}
	matches, _ := filepath.Glob(filepath.Join(cfg.ResultDir, "Slow*"))
	if len(matches) != 0 {
		t.Errorf("hanging test wrote results: %v", matches)
	}
	if got := srv.Attempts("models.UserTest.class"); got != 2 {
		t.Errorf("Attempts() = %d, want 2", got)
	}
}

func TestEndAndKill(t *testing.T) {
	killed := make(chan struct{})
	cfg := DefaultConfig()
	cfg.ResultDir = t.TempDir()
	cfg.OnKill = func() { close(killed) }
	srv, base := newTestServer(t, cfg)

	get(t, base+"/@tests/end?result=failed")
	get(t, base+"/@kill")

	select {
	case <-killed:
	case <-time.After(5 * time.Second):
		t.Fatal("OnKill was not called")
	}
	if got := srv.Ends(); len(got) != 1 || got[0] != "failed" {
		t.Errorf("Ends() = %v, want [failed]", got)
	}
	if got := srv.Kills(); got != 1 {
		t.Errorf("Kills() = %d, want 1", got)
	}
	if got := srv.Requests(); len(got) != 2 || got[1] != "/@kill" {
		t.Errorf("Requests() = %v", got)
	}
}
