// internal/model/stats.go
package model

// RawSnapshot is what the metric source returns after a refresh.
// Counters are point-in-time values; nothing here is derived.
type RawSnapshot struct {
	// CPU
	Cores int

	// Memory
	MemoryTotal uint64 // bytes

	// Disk, one entry per configured mount path
	Disks []DiskSpace

	// Network, summed over all interfaces
	NetworkReceived    uint64 // cumulative bytes
	NetworkTransmitted uint64 // cumulative bytes

	// Target process (zeroed when not found)
	Target ProcessStats
}

// DiskSpace holds the capacity figures of one filesystem
type DiskSpace struct {
	MountPath string
	Total     uint64
	Available uint64
}

// ProcessStats holds the figures tracked for the target process
type ProcessStats struct {
	Found          bool
	PID            int
	CPUPercent     float64 // 100 == one full core
	MemoryBytes    uint64
	DiskReadBytes  uint64 // cumulative
	DiskWriteBytes uint64 // cumulative
}

// FirstDisk returns the first configured disk, if any
func (s RawSnapshot) FirstDisk() (DiskSpace, bool) {
	if len(s.Disks) == 0 {
		return DiskSpace{}, false
	}
	return s.Disks[0], true
}

// MetricSample is one persisted sampling cycle
type MetricSample struct {
	Timestamp float64 // unix seconds, fractional

	CPUPercent       float64
	MemoryPercent    float64
	MemoryTotalBytes uint64
	MemoryUsedBytes  uint64
	DiskPercent      float64

	NetworkReceivedBytes    uint64 // cumulative
	NetworkTransmittedBytes uint64 // cumulative

	TargetMemoryBytes    uint64
	TargetDiskReadBytes  uint64
	TargetDiskWriteBytes uint64
}

// Point is a single (x, y) pair of a rolling series
type Point struct {
	X float64
	Y float64
}
