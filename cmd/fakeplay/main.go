// Fake Play Test Server
//
// This server stands in for a Play application started in test mode. It
// serves /@tests.list and the test pages the webdrive runner visits, writes
// the per-test result files and exits on /@kill. Point
// webdrive.server.command at it to exercise webdrive:test without a JVM:
//
//	webdrive.server.command=fakeplay -port 9000 -tests ApplicationTest.class,Application.test.html
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/thesyncim/webdrive/cmd/fakeplay/server"
)

func main() {
	port := flag.Int("port", 9000, "port to listen on")
	results := flag.String("results", "test-result", "directory for result files")
	tests := flag.String("tests", "", "comma separated entries of /@tests.list")
	failing := flag.String("fail", "", "comma separated tests that fail")
	flag.Parse()

	resultDir, err := filepath.Abs(*results)
	if err != nil {
		log.Fatalf("Failed to resolve %s: %v", *results, err)
	}

	failed := make(map[string]bool)
	for _, t := range splitList(*failing) {
		failed[t] = true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := server.DefaultConfig()
	cfg.Addr = fmt.Sprintf(":%d", *port)
	cfg.ResultDir = resultDir
	cfg.Tests = splitList(*tests)
	cfg.Outcome = func(test string, _ int) server.Result {
		if failed[test] {
			return server.Fail
		}
		return server.Pass
	}
	cfg.OnKill = cancel

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	if _, err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// webdrive:test waits for this line in the server log.
	fmt.Printf("Listening for HTTP on port %s ...\n", srv.Port())

	<-ctx.Done()

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
	}
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
