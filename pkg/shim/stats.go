// Copyright (c) 2021-2022 Apple Inc.
//
// SPDX-License-Identifier: Apache-2.0
//

package shim

import (
	"github.com/containerd/cgroups"
	cgroupsv2 "github.com/containerd/cgroups/v2"
)

// statsSnapshot is the D2 stats sampler's result: a best-effort memory/CPU
// reading for a container's cgroup. Ok is false whenever the sample could
// not be taken; Stats is diagnostic-only and must never fail its caller.
type statsSnapshot struct {
	MemoryUsageBytes uint64
	CPUUsageNanos    uint64
	Ok               bool
}

// sampleStats reads the current cgroup memory/CPU counters for the process
// group rooted at pid, auto-detecting cgroup v1 versus v2 via cgroups.Mode().
func sampleStats(pid int32) statsSnapshot {
	if pid <= 0 {
		return statsSnapshot{}
	}

	switch cgroups.Mode() {
	case cgroups.Unified:
		return sampleStatsV2(pid)
	case cgroups.Legacy, cgroups.Hybrid:
		return sampleStatsV1(pid)
	default:
		return statsSnapshot{}
	}
}

func sampleStatsV1(pid int32) statsSnapshot {
	path, err := cgroups.PidPath(int(pid))(cgroups.Devices)
	if err != nil {
		return statsSnapshot{}
	}
	ctrl, err := cgroups.Load(cgroups.V1, cgroups.StaticPath(path))
	if err != nil {
		return statsSnapshot{}
	}
	metrics, err := ctrl.Stat(cgroups.IgnoreNotExist)
	if err != nil || metrics == nil || metrics.Memory == nil {
		return statsSnapshot{}
	}

	var cpuNanos uint64
	if metrics.CPU != nil && metrics.CPU.Usage != nil {
		cpuNanos = metrics.CPU.Usage.Total
	}
	return statsSnapshot{
		MemoryUsageBytes: metrics.Memory.Usage.Usage,
		CPUUsageNanos:    cpuNanos,
		Ok:               true,
	}
}

func sampleStatsV2(pid int32) statsSnapshot {
	group, err := cgroupsv2.PidGroupPath(int(pid))
	if err != nil {
		return statsSnapshot{}
	}
	manager, err := cgroupsv2.LoadManager("/sys/fs/cgroup", group)
	if err != nil {
		return statsSnapshot{}
	}
	metrics, err := manager.Stat()
	if err != nil || metrics == nil || metrics.Memory == nil {
		return statsSnapshot{}
	}

	var cpuNanos uint64
	if metrics.CPU != nil {
		cpuNanos = metrics.CPU.UsageUsec * 1000
	}
	return statsSnapshot{
		MemoryUsageBytes: metrics.Memory.Usage,
		CPUUsageNanos:    cpuNanos,
		Ok:               true,
	}
}
