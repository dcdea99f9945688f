// internal/docker/logs.go
package docker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

// Recent returns up to limit log lines written by the named container within
// the lookback window. It lets a containerised sshd serve as the auth log.
func (c *Client) Recent(ctx context.Context, service string, lookback time.Duration, limit int) ([]string, error) {
	id, err := c.findContainer(ctx, service)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("container %q not running", service)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	inspect, err := c.cli.ContainerInspect(ctx, id)
	if err != nil {
		return nil, err
	}

	options := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(limit), // Get last N lines
	}
	if lookback > 0 {
		options.Since = lookback.String()
	}

	reader, err := c.cli.ContainerLogs(ctx, id, options)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	// Without a TTY the stream is multiplexed behind 8-byte frame headers
	var stream io.Reader = reader
	if inspect.Config == nil || !inspect.Config.Tty {
		var buf bytes.Buffer
		if _, err := stdcopy.StdCopy(&buf, &buf, reader); err != nil {
			return nil, err
		}
		stream = &buf
	}

	return parseLogStream(stream)
}

// parseLogStream splits a log stream into non-empty lines
func parseLogStream(reader io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(reader)
	// Increase buffer size for long log lines
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return lines, err
	}
	return lines, nil
}
