package monitor

import (
	"os"
	"sort"
	"strconv"
)

// Scanner enumerates process identifiers under a procfs root.
type Scanner struct {
	root   string
	legacy bool
}

// NewScanner creates a Scanner for root. With legacy set, a directory is a
// candidate when its name contains any digit; otherwise every character must
// be a digit.
func NewScanner(root string, legacy bool) *Scanner {
	return &Scanner{root: root, legacy: legacy}
}

// ListProcesses returns the PIDs found under the root, ascending.
// A failed directory read yields an empty list.
func (s *Scanner) ListProcesses() []int {
	pids, _ := s.List()
	return pids
}

// List is ListProcesses with the listing failure reported as a KindFatal
// ReadError. The PID list is empty whenever err is non-nil.
func (s *Scanner) List() ([]int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, newReadError(KindFatal, SourceScanner, s.root, err)
	}

	pids := make([]int, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !s.matchName(name) {
			continue
		}
		pid, err := strconv.Atoi(name)
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids, nil
}

func (s *Scanner) matchName(name string) bool {
	if s.legacy {
		return containsDigit(name)
	}
	return allDigits(name)
}

// allDigits reports whether name is non-empty and consists only of ASCII digits.
func allDigits(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return true
}

// containsDigit reports whether name contains at least one ASCII digit.
func containsDigit(name string) bool {
	for i := 0; i < len(name); i++ {
		if name[i] >= '0' && name[i] <= '9' {
			return true
		}
	}
	return false
}
