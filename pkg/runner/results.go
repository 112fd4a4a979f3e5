package runner

import (
	"os"
	"path/filepath"
)

// keptInRoot is left in place when results are archived.
const keptInRoot = "application.log"

// saveResults moves the files Play wrote into the result root to
// <root>/<driver>, so the next driver or retry starts from a clean root.
func (r *Runner) saveResults(driver string) {
	root := r.list.ResultRoot
	dest := filepath.Join(root, driver)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		r.log.Infof("Could not create %s", dest)
		return
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		r.log.WithError(err).Debug("failed to list results")
		return
	}
	for _, e := range entries {
		if e.Name() == keptInRoot || !e.Type().IsRegular() {
			continue
		}
		target := filepath.Join(dest, e.Name())
		if err := os.Rename(filepath.Join(root, e.Name()), target); err != nil {
			r.log.Infof("Could not create %s", target)
		}
	}
}

func joinRoot(root, name string) string {
	return filepath.Join(root, name)
}
