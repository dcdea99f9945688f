// internal/docker/stats.go
package docker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/rusenback/nodewatch/internal/model"
)

// Probe reports the named container as the tracked target. A container that
// does not exist or is not running yields zeroed stats and no error. The
// daemon computes CPU over its own pre-sample, so settle is unused.
func (c *Client) Probe(ctx context.Context, name string, settle time.Duration) (model.ProcessStats, error) {
	id, err := c.findContainer(ctx, name)
	if err != nil {
		return model.ProcessStats{}, err
	}
	if id == "" {
		return model.ProcessStats{}, nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	// stream: false fetches a single sample
	resp, err := c.cli.ContainerStats(ctx, id, false)
	if err != nil {
		return model.ProcessStats{}, err
	}
	defer resp.Body.Close()

	var stats types.StatsJSON
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		if errors.Is(err, io.EOF) {
			return model.ProcessStats{}, nil
		}
		return model.ProcessStats{}, err
	}

	return toProcessStats(&stats), nil
}

// findContainer returns the ID of the running container with exactly this
// name, "" when there is none. The API name filter matches substrings.
func (c *Client) findContainer(ctx context.Context, name string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	containers, err := c.cli.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return "", err
	}

	for _, cont := range containers {
		for _, n := range cont.Names {
			if strings.TrimPrefix(n, "/") == name {
				return cont.ID, nil
			}
		}
	}
	return "", nil
}

func toProcessStats(stats *types.StatsJSON) model.ProcessStats {
	var read, write uint64
	for _, entry := range stats.BlkioStats.IoServiceBytesRecursive {
		switch strings.ToLower(entry.Op) {
		case "read":
			read += entry.Value
		case "write":
			write += entry.Value
		}
	}

	return model.ProcessStats{
		Found:          true,
		CPUPercent:     calculateCPUPercent(stats),
		MemoryBytes:    stats.MemoryStats.Usage,
		DiskReadBytes:  read,
		DiskWriteBytes: write,
	}
}

// calculateCPUPercent returns CPU usage where 100 means one full core
func calculateCPUPercent(stats *types.StatsJSON) float64 {
	cpuDelta := float64(stats.CPUStats.CPUUsage.TotalUsage) - float64(stats.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(stats.CPUStats.SystemUsage) - float64(stats.PreCPUStats.SystemUsage)

	// cgroup v2 leaves PercpuUsage empty
	cpus := float64(stats.CPUStats.OnlineCPUs)
	if cpus == 0 {
		cpus = float64(len(stats.CPUStats.CPUUsage.PercpuUsage))
	}
	if cpus == 0 {
		cpus = 1
	}

	if systemDelta > 0.0 && cpuDelta > 0.0 {
		return (cpuDelta / systemDelta) * cpus * 100.0
	}
	return 0.0
}
