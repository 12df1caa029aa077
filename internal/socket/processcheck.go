package socket

import (
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/Krakenied/MiniMessenger/internal/log"
)

// commLen is how much of an executable name Linux keeps in the process table.
const commLen = 15

var _ ProcessChecker = (*Processes)(nil)

// ProcessChecker reports whether the daemon executable is running.
type ProcessChecker interface {
	Running(name string) bool
}

// ProcessLister returns a snapshot of the process table.
type ProcessLister func() ([]ps.Process, error)

// Processes checks the live process table, or the one returned by its lister.
type Processes struct {
	list ProcessLister
}

// NewProcesses returns a checker backed by list. A nil list reads the real
// process table.
func NewProcesses(list ProcessLister) *Processes {
	if list == nil {
		list = ps.Processes
	}
	return &Processes{list: list}
}

// Running reports whether a process named name exists. Names compare
// case-insensitively without a ".exe" suffix, and a truncated kernel name
// matches when it is a prefix of name.
func (p *Processes) Running(name string) bool {
	procs, err := p.list()
	if err != nil {
		log.Debug("listing processes failed", "error", err)
		return false
	}

	want := executableName(name)
	for _, proc := range procs {
		if matchesExecutable(executableName(proc.Executable()), want) {
			return true
		}
	}
	return false
}

func executableName(name string) string {
	name = strings.ToLower(name)
	return strings.TrimSuffix(name, ".exe")
}

func matchesExecutable(got, want string) bool {
	if got == want {
		return true
	}
	return len(got) == commLen && len(want) > commLen && strings.HasPrefix(want, got)
}
