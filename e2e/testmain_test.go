//go:build e2e

package e2e

import (
	"os"
	"strings"
	"testing"

	"github.com/shirou/gopsutil/v3/process"
)

func TestMain(m *testing.M) {
	// Run all tests
	code := m.Run()

	// Cleanup: Kill any orphaned Chrome processes
	// This is a safety net for test failures/panics where
	// Quit() didn't run
	cleanupOrphanedBrowsers()

	os.Exit(code)
}

// cleanupOrphanedBrowsers kills Chrome processes started by this test
// binary that may have been left behind by failed tests. This is
// best-effort cleanup.
func cleanupOrphanedBrowsers() {
	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}
	children, err := self.Children()
	if err != nil {
		return
	}
	for _, p := range children {
		name, err := p.Name()
		if err != nil {
			continue
		}
		// Rod downloads chromium, system installs are chrome.
		if n := strings.ToLower(name); strings.Contains(n, "chrom") {
			_ = p.Kill()
		}
	}
}
