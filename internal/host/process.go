package host

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rusenback/nodewatch/internal/model"
)

// clockTicks is USER_HZ, the unit of utime/stime in /proc/<pid>/stat
const clockTicks = 100

// commLen is the kernel's limit on /proc/<pid>/comm (TASK_COMM_LEN - 1)
const commLen = 15

// ProcProbe finds a process by name under procfs
type ProcProbe struct {
	root string

	// Overridable for testing.
	readFile func(path string) ([]byte, error)
	readDir  func(path string) ([]os.DirEntry, error)
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

// NewProcProbe creates a probe rooted at procRoot (default /proc)
func NewProcProbe(procRoot string) *ProcProbe {
	if procRoot == "" {
		procRoot = "/proc"
	}
	return &ProcProbe{
		root:     procRoot,
		readFile: os.ReadFile,
		readDir:  os.ReadDir,
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

// Probe returns CPU, memory and disk I/O figures for the lowest-pid process
// named name. CPU is measured over the settle window; 100 means one full core.
func (p *ProcProbe) Probe(ctx context.Context, name string, settle time.Duration) (model.ProcessStats, error) {
	pid, err := p.findPID(name)
	if err != nil {
		return model.ProcessStats{}, err
	}
	if pid == 0 {
		return model.ProcessStats{}, nil
	}

	ticksBefore, err := p.readTicks(pid)
	if err != nil {
		// exited between the scan and the read
		return model.ProcessStats{}, nil
	}
	start := p.now()

	if err := p.sleep(ctx, settle); err != nil {
		return model.ProcessStats{}, err
	}

	stats := model.ProcessStats{Found: true, PID: pid}

	if ticksAfter, err := p.readTicks(pid); err == nil && ticksAfter >= ticksBefore {
		if elapsed := p.now().Sub(start).Seconds(); elapsed > 0 {
			stats.CPUPercent = float64(ticksAfter-ticksBefore) / clockTicks / elapsed * 100.0
		}
	}

	if rss, err := p.readRSS(pid); err == nil {
		stats.MemoryBytes = rss
	}

	// /proc/<pid>/io is only readable by the owner or root
	if read, write, err := p.readIO(pid); err == nil {
		stats.DiskReadBytes = read
		stats.DiskWriteBytes = write
	}

	return stats, nil
}

// findPID returns the lowest pid whose comm matches name, 0 if none
func (p *ProcProbe) findPID(name string) (int, error) {
	entries, err := p.readDir(p.root)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", p.root, err)
	}

	want := name
	if len(want) > commLen {
		want = want[:commLen]
	}

	pids := make([]int, 0, len(entries))
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || !e.IsDir() {
			continue
		}
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	for _, pid := range pids {
		comm, err := p.readFile(p.pidPath(pid, "comm"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(comm)) == want {
			return pid, nil
		}
	}
	return 0, nil
}

func (p *ProcProbe) pidPath(pid int, name string) string {
	return filepath.Join(p.root, strconv.Itoa(pid), name)
}

// readTicks returns utime+stime from /proc/<pid>/stat. The comm field may
// contain spaces, so parsing starts after the last ')'.
func (p *ProcProbe) readTicks(pid int) (uint64, error) {
	raw, err := p.readFile(p.pidPath(pid, "stat"))
	if err != nil {
		return 0, err
	}
	end := bytes.LastIndexByte(raw, ')')
	if end < 0 {
		return 0, fmt.Errorf("malformed stat for pid %d", pid)
	}

	// fields[0] is state (field 3); utime and stime are fields 14 and 15
	fields := strings.Fields(string(raw[end+1:]))
	if len(fields) < 13 {
		return 0, fmt.Errorf("short stat for pid %d", pid)
	}
	utime, err := strconv.ParseUint(fields[11], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse utime: %w", err)
	}
	stime, err := strconv.ParseUint(fields[12], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse stime: %w", err)
	}
	return utime + stime, nil
}

// readRSS returns VmRSS in bytes
func (p *ProcProbe) readRSS(pid int) (uint64, error) {
	raw, err := p.readFile(p.pidPath(pid, "status"))
	if err != nil {
		return 0, err
	}
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "VmRSS:") {
			kb, err := parseKBField(line)
			if err != nil {
				return 0, err
			}
			return kb * 1024, nil
		}
	}
	// kernel threads have no VmRSS
	return 0, nil
}

// readIO returns read_bytes and write_bytes
func (p *ProcProbe) readIO(pid int) (uint64, uint64, error) {
	raw, err := p.readFile(p.pidPath(pid, "io"))
	if err != nil {
		return 0, 0, err
	}
	var read, write uint64
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "read_bytes":
			read = n
		case "write_bytes":
			write = n
		}
	}
	return read, write, nil
}
