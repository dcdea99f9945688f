package authlog

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// JournalSource reads lines from systemd-journald through journalctl
type JournalSource struct {
	Binary string

	// Overridable for testing.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewJournalSource creates a source that shells out to journalctl
func NewJournalSource() *JournalSource {
	return &JournalSource{
		Binary: "journalctl",
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// Recent runs journalctl -u service --since "N seconds ago" -n limit
func (j *JournalSource) Recent(ctx context.Context, service string, lookback time.Duration, limit int) ([]string, error) {
	args := []string{"-u", service, "--no-pager", "-q"}
	if lookback > 0 {
		secs := int64(lookback / time.Second)
		if secs < 1 {
			secs = 1
		}
		args = append(args, "--since", fmt.Sprintf("%d seconds ago", secs))
	}
	if limit > 0 {
		args = append(args, "-n", strconv.Itoa(limit))
	}

	out, err := j.run(ctx, j.Binary, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", j.Binary, err)
	}
	return splitLines(out), nil
}

func splitLines(out []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
