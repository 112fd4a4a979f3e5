package launcher

import (
	"errors"

	"github.com/shirou/gopsutil/v3/process"
)

// terminateTree kills pid and all of its descendants, children first.
// The Play launcher scripts fork the JVM, so killing only the direct child
// would leave the server running.
func terminateTree(pid int32) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		return err
	}
	children, err := p.Children()
	if err != nil && !errors.Is(err, process.ErrorNoChildren) {
		return err
	}
	for _, c := range children {
		// Best-effort: a child may exit on its own while we walk the tree.
		terminateTree(c.Pid)
	}
	return p.Kill()
}
