package monitor

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// SystemReader reads system-wide accounting records under a procfs root.
type SystemReader struct {
	statPath    string
	meminfoPath string
}

// NewSystemReader creates a SystemReader for root.
func NewSystemReader(root string) *SystemReader {
	return &SystemReader{
		statPath:    filepath.Join(root, "stat"),
		meminfoPath: filepath.Join(root, "meminfo"),
	}
}

// ReadSystemCPUTotals sums every numeric field of the aggregate cpu line.
// Any failure is a KindSystemUnavailable ReadError; the sampler must treat it
// as "cannot compute this window".
func (r *SystemReader) ReadSystemCPUTotals() (SystemCPUTotals, error) {
	file, err := os.Open(r.statPath)
	if err != nil {
		return SystemCPUTotals{}, newReadError(KindSystemUnavailable, SourceCPU, r.statPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		total, err := sumCPULine(line)
		if err != nil {
			return SystemCPUTotals{}, newReadError(KindSystemUnavailable, SourceCPU, r.statPath, err)
		}
		return SystemCPUTotals{Total: total, ObservedAt: time.Now()}, nil
	}
	if err := scanner.Err(); err != nil {
		return SystemCPUTotals{}, newReadError(KindSystemUnavailable, SourceCPU, r.statPath, err)
	}
	return SystemCPUTotals{}, newReadError(KindSystemUnavailable, SourceCPU, r.statPath,
		fmt.Errorf("cpu line not found"))
}

// sumCPULine adds user, nice, system, idle, iowait, irq, softirq, steal and any
// later categories. Non-numeric fields are skipped.
func sumCPULine(line string) (uint64, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, fmt.Errorf("invalid cpu line format")
	}
	var total uint64
	var parsed int
	for _, f := range fields[1:] {
		val, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			continue
		}
		total += val
		parsed++
	}
	if parsed == 0 {
		return 0, fmt.Errorf("cpu line has no numeric fields")
	}
	return total, nil
}

// ReadSystemMemoryTotals reads MemTotal and MemAvailable in kB.
// ok is false when the record is unreadable or either value is missing.
func (r *SystemReader) ReadSystemMemoryTotals() (SystemMemoryTotals, bool) {
	totals, err := r.readMemInfo()
	return totals, err == nil
}

func (r *SystemReader) readMemInfo() (SystemMemoryTotals, error) {
	file, err := os.Open(r.meminfoPath)
	if err != nil {
		return SystemMemoryTotals{}, newReadError(KindSystemUnavailable, SourceMemInfo, r.meminfoPath, err)
	}
	defer file.Close()

	var totals SystemMemoryTotals
	var haveTotal, haveAvail bool

	scanner := bufio.NewScanner(file)
	for scanner.Scan() && !(haveTotal && haveAvail) {
		key, value, ok := parseMemInfoLine(scanner.Text())
		if !ok {
			continue
		}
		switch key {
		case "MemTotal":
			totals.TotalKB, haveTotal = value, true
		case "MemAvailable":
			totals.AvailableKB, haveAvail = value, true
		}
	}
	if err := scanner.Err(); err != nil {
		return SystemMemoryTotals{}, newReadError(KindSystemUnavailable, SourceMemInfo, r.meminfoPath, err)
	}
	if !haveTotal || !haveAvail {
		return SystemMemoryTotals{}, newReadError(KindSystemUnavailable, SourceMemInfo, r.meminfoPath,
			fmt.Errorf("MemTotal or MemAvailable missing"))
	}
	return totals, nil
}

// parseMemInfoLine splits "Key:   1234 kB" into its key and numeric value.
func parseMemInfoLine(line string) (string, uint64, bool) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	key := strings.TrimSpace(parts[0])
	valueStr := strings.TrimSuffix(strings.TrimSpace(parts[1]), " kB")
	value, err := strconv.ParseUint(strings.TrimSpace(valueStr), 10, 64)
	if err != nil {
		return "", 0, false
	}
	return key, value, true
}
