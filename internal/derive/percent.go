package derive

// Percent returns part/whole*100, or 0 when whole is zero
func Percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100.0
}

// DiskPercent computes used space as a percentage of total. extra is added to
// the used figure (the tracked data directory). Used space never goes below
// zero even if the filesystem reports more available than total.
func DiskPercent(total, available, extra uint64) float64 {
	if total == 0 {
		return 0
	}
	var used uint64
	if total > available {
		used = total - available
	}
	used += extra
	return float64(used) / float64(total) * 100.0
}

// CPUPerCore scales a per-core CPU figure (100 == one core) to a 0-100 share
// of the whole machine.
func CPUPerCore(cpuPercent float64, cores int) float64 {
	if cores <= 0 {
		return cpuPercent
	}
	return cpuPercent / float64(cores)
}
