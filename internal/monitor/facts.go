package monitor

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Field indices in /proc/[pid]/stat, relative to the fields after the
// command name (comm). Field numbers in comments are from proc(5).
const (
	// statFieldState is the process state (field 3).
	statFieldState = 0
	// statFieldUtime is user mode CPU time in clock ticks (field 14).
	statFieldUtime = 11
	// statFieldStime is kernel mode CPU time in clock ticks (field 15).
	statFieldStime = 12
	// statmFieldResident is resident pages (field 2 of /proc/[pid]/statm).
	statmFieldResident = 1
)

// Labels scanned in /proc/[pid]/status.
const (
	statusName = "Name:"
	statusPPid = "PPid:"
	statusUid  = "Uid:"
)

// FactReader reads per-process records under a procfs root. Every method
// tolerates the process having exited since its PID was listed.
type FactReader struct {
	root     string
	pageSize uint64
	accounts AccountResolver
}

// NewFactReader creates a FactReader. pageSize is in bytes.
func NewFactReader(root string, pageSize int, accounts AccountResolver) *FactReader {
	if accounts == nil {
		accounts = NewSystemAccounts()
	}
	return &FactReader{
		root:     root,
		pageSize: uint64(pageSize),
		accounts: accounts,
	}
}

func (r *FactReader) path(pid int, name string) string {
	return filepath.Join(r.root, strconv.Itoa(pid), name)
}

// ReadFacts extracts name, parent id and owner from the status record.
// ok is false when the record is missing or has no Name: line.
func (r *FactReader) ReadFacts(pid int) (ProcessFacts, bool) {
	facts, err := r.readFacts(pid)
	return facts, err == nil
}

func (r *FactReader) readFacts(pid int) (ProcessFacts, error) {
	path := r.path(pid, "status")
	content, err := os.ReadFile(path)
	if err != nil {
		return ProcessFacts{}, openError(SourceFacts, path, err)
	}

	facts, err := parseStatus(content)
	if err != nil {
		return ProcessFacts{}, newReadError(KindMalformedRecord, SourceFacts, path, err)
	}
	facts.PID = pid
	if facts.UID >= 0 {
		facts.Owner, facts.OwnerResolved = r.accounts.LookupUID(facts.UID)
	}
	return facts, nil
}

// parseStatus scans the labeled lines of a status record. Line order is not
// assumed; the scan ends early once every target label has been seen.
// A non-numeric PPid or Uid leaves that field at its default.
func parseStatus(content []byte) (ProcessFacts, error) {
	facts := ProcessFacts{UID: -1}
	var haveName, havePPid, haveUID bool

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() && !(haveName && havePPid && haveUID) {
		line := scanner.Text()
		switch {
		case !haveName && strings.HasPrefix(line, statusName):
			facts.Name = strings.TrimSpace(line[len(statusName):])
			haveName = true
		case !havePPid && strings.HasPrefix(line, statusPPid):
			havePPid = true
			if v, err := strconv.Atoi(firstField(line[len(statusPPid):])); err == nil {
				facts.PPID = v
			}
		case !haveUID && strings.HasPrefix(line, statusUid):
			haveUID = true
			if v, err := strconv.Atoi(firstField(line[len(statusUid):])); err == nil && v >= 0 {
				facts.UID = v
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return facts, fmt.Errorf("scanning status: %w", err)
	}
	if !haveName {
		return facts, fmt.Errorf("no %s line", statusName)
	}
	return facts, nil
}

// ReadState reads the run state from the stat record.
func (r *FactReader) ReadState(pid int) (State, bool) {
	fields, err := r.statFields(pid)
	if err != nil {
		return StateUnknown, false
	}
	return ParseState(fields[statFieldState]), true
}

// ReadMemory returns resident memory in bytes from the statm record.
func (r *FactReader) ReadMemory(pid int) (uint64, bool) {
	path := r.path(pid, "statm")
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pages, err := parseStatm(content)
	if err != nil {
		return 0, false
	}
	return pages * r.pageSize, true
}

// parseStatm returns the resident page count from a statm record.
func parseStatm(content []byte) (uint64, error) {
	fields := strings.Fields(string(content))
	if len(fields) <= statmFieldResident {
		return 0, fmt.Errorf("statm: got %d fields, need %d", len(fields), statmFieldResident+1)
	}
	pages, err := strconv.ParseUint(fields[statmFieldResident], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("statm resident: %w", err)
	}
	return pages, nil
}

// ReadCPUTicks reads accumulated user and system ticks from the stat record.
func (r *FactReader) ReadCPUTicks(pid int) (CPUTicks, bool) {
	fields, err := r.statFields(pid)
	if err != nil {
		return CPUTicks{}, false
	}
	now := time.Now()
	if len(fields) <= statFieldStime {
		return CPUTicks{}, false
	}
	utime, err := strconv.ParseUint(fields[statFieldUtime], 10, 64)
	if err != nil {
		return CPUTicks{}, false
	}
	stime, err := strconv.ParseUint(fields[statFieldStime], 10, 64)
	if err != nil {
		return CPUTicks{}, false
	}
	return CPUTicks{PID: pid, User: utime, System: stime, ObservedAt: now}, true
}

// statFields reads /proc/[pid]/stat and returns the fields after comm.
func (r *FactReader) statFields(pid int) ([]string, error) {
	path := r.path(pid, "stat")
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, openError(SourceState, path, err)
	}
	fields, err := splitStat(string(content))
	if err != nil {
		return nil, newReadError(KindMalformedRecord, SourceState, path, err)
	}
	return fields, nil
}

// splitStat splits a stat record into the fields following the command name.
// The format is: pid (comm) state ppid ... ; comm may itself contain spaces
// and parentheses, so the split happens at the last ')'.
func splitStat(content string) ([]string, error) {
	openParen := strings.IndexByte(content, '(')
	closeParen := strings.LastIndexByte(content, ')')
	if openParen == -1 || closeParen == -1 || closeParen <= openParen {
		return nil, fmt.Errorf("invalid stat format: missing parentheses")
	}
	fields := strings.Fields(content[closeParen+1:])
	if len(fields) == 0 {
		return nil, fmt.Errorf("invalid stat format: no fields after comm")
	}
	return fields, nil
}

// firstField returns the first whitespace-delimited token of s.
func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
