// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package host

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"mchanger/pkg/smc"
)

const (
	mountTablePath    = "/proc/self/mounts"
	mountPollInterval = 500 * time.Millisecond
)

// MountTableObserver watches the kernel mount table for a mount
// point that was not there before.
type MountTableObserver struct {
	tablePath string
}

func NewMountObserver() MountTableObserver {
	return MountTableObserver{tablePath: mountTablePath}
}

func (observer MountTableObserver) WaitForMount(timeout time.Duration) (smc.MountInfo, bool, error) {
	known, err := observer.mountPoints()
	if err != nil {
		return smc.MountInfo{}, false, err
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		time.Sleep(mountPollInterval)
		current, err := observer.mountPoints()
		if err != nil {
			return smc.MountInfo{}, false, err
		}
		for mountPoint := range current {
			if _, existed := known[mountPoint]; existed {
				continue
			}
			return smc.MountInfo{
				Name: filepath.Base(mountPoint),
				Size: volumeSize(mountPoint),
			}, true, nil
		}
	}
	return smc.MountInfo{}, false, nil
}

func (observer MountTableObserver) mountPoints() (map[string]struct{}, error) {
	raw, err := os.ReadFile(observer.tablePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", observer.tablePath, err)
	}
	points := map[string]struct{}{}
	for _, line := range strings.Split(string(raw), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		points[fields[1]] = struct{}{}
	}
	return points, nil
}

func volumeSize(mountPoint string) string {
	var stat unix.Statfs_t
	if err := unix.Statfs(mountPoint, &stat); err != nil {
		return "unknown size"
	}
	return formatVolumeSize(uint64(stat.Bsize) * stat.Blocks)
}

func formatVolumeSize(size uint64) string {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB"}
	value := float64(size)
	unit := 0
	for value >= 1024 && unit < len(units)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", value, units[unit])
}
