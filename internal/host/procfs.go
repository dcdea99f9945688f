package host

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/rusenback/nodewatch/internal/model"
)

// DefaultSettle is the pause between the coarse refresh and the CPU refresh
const DefaultSettle = 200 * time.Millisecond

// ProcConfig configures a ProcSource
type ProcConfig struct {
	ProcRoot   string        // defaults to /proc
	MountPaths []string      // filesystems reported as disks, defaults to "/"
	Target     string        // name of the tracked process or container
	Settle     time.Duration // CPU settle delay
}

// ProcSource reads system counters from procfs and statfs
type ProcSource struct {
	logger *slog.Logger
	cfg    ProcConfig
	probe  TargetProbe

	snap model.RawSnapshot

	// Overridable for testing.
	readFile   func(path string) ([]byte, error)
	statfsFunc func(path string, buf *unix.Statfs_t) error
}

// NewProcSource creates a ProcSource. probe may be nil when no target is tracked.
// If logger is nil, a no-op logger is used.
func NewProcSource(cfg ProcConfig, probe TargetProbe, logger *slog.Logger) *ProcSource {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.ProcRoot == "" {
		cfg.ProcRoot = "/proc"
	}
	if len(cfg.MountPaths) == 0 {
		cfg.MountPaths = []string{"/"}
	}
	if cfg.Settle < 0 {
		cfg.Settle = 0
	}

	return &ProcSource{
		logger:     logger,
		cfg:        cfg,
		probe:      probe,
		readFile:   os.ReadFile,
		statfsFunc: unix.Statfs,
	}
}

// Refresh gathers a new snapshot. Failing to read the core system files is
// an error; a missing or unreachable target is not.
func (s *ProcSource) Refresh(ctx context.Context) error {
	var snap model.RawSnapshot

	cores, err := s.readCores()
	if err != nil {
		return err
	}
	snap.Cores = cores

	memTotal, err := s.readMemTotal()
	if err != nil {
		return err
	}
	snap.MemoryTotal = memTotal

	rx, tx, err := s.readNetDev()
	if err != nil {
		return err
	}
	snap.NetworkReceived = rx
	snap.NetworkTransmitted = tx

	snap.Disks = s.readDisks()

	if s.probe != nil && s.cfg.Target != "" {
		target, err := s.probe.Probe(ctx, s.cfg.Target, s.cfg.Settle)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.logger.Warn("target probe failed", "target", s.cfg.Target, "error", err)
			target = model.ProcessStats{}
		}
		snap.Target = target
	}

	s.snap = snap
	return nil
}

// Read returns the last refreshed snapshot
func (s *ProcSource) Read() model.RawSnapshot {
	snap := s.snap
	snap.Disks = append([]model.DiskSpace(nil), s.snap.Disks...)
	return snap
}

func (s *ProcSource) procPath(name string) string {
	return filepath.Join(s.cfg.ProcRoot, name)
}

// readCores counts the per-cpu lines of /proc/stat
func (s *ProcSource) readCores() (int, error) {
	raw, err := s.readFile(s.procPath("stat"))
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", s.procPath("stat"), err)
	}

	cores := 0
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "cpu") && len(line) > 3 && line[3] >= '0' && line[3] <= '9' {
			cores++
		}
	}
	if cores == 0 {
		return 0, fmt.Errorf("no per-cpu lines in %s", s.procPath("stat"))
	}
	return cores, nil
}

// readMemTotal returns MemTotal from /proc/meminfo in bytes
func (s *ProcSource) readMemTotal() (uint64, error) {
	raw, err := s.readFile(s.procPath("meminfo"))
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", s.procPath("meminfo"), err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		kb, err := parseKBField(line)
		if err != nil {
			return 0, fmt.Errorf("parse MemTotal: %w", err)
		}
		return kb * 1024, nil
	}
	return 0, fmt.Errorf("MemTotal not found in %s", s.procPath("meminfo"))
}

// readNetDev sums received and transmitted bytes over all interfaces.
// Format after the two header lines: "iface: rx_bytes rx_packets ... tx_bytes ..."
func (s *ProcSource) readNetDev() (uint64, uint64, error) {
	raw, err := s.readFile(s.procPath("net/dev"))
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", s.procPath("net/dev"), err)
	}

	var rx, tx uint64
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue // header
		}
		fields := strings.Fields(line[colon+1:])
		if len(fields) < 9 {
			continue
		}
		r, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		t, err := strconv.ParseUint(fields[8], 10, 64)
		if err != nil {
			continue
		}
		rx += r
		tx += t
	}
	return rx, tx, nil
}

// readDisks statfs's every configured mount path. Unreadable mounts are
// skipped with a warning.
func (s *ProcSource) readDisks() []model.DiskSpace {
	disks := make([]model.DiskSpace, 0, len(s.cfg.MountPaths))
	for _, path := range s.cfg.MountPaths {
		var st unix.Statfs_t
		if err := s.statfsFunc(path, &st); err != nil {
			s.logger.Warn("statfs failed", "path", path, "error", err)
			continue
		}
		bsize := uint64(st.Bsize)
		disks = append(disks, model.DiskSpace{
			MountPath: path,
			Total:     st.Blocks * bsize,
			Available: st.Bavail * bsize,
		})
	}
	return disks
}

// parseKBField extracts the numeric value from "Key:   1234 kB"
func parseKBField(line string) (uint64, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, fmt.Errorf("too few fields: %q", line)
	}
	return strconv.ParseUint(fields[1], 10, 64)
}
