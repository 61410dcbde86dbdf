// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package smc

import "time"

// Contracts the host environment implements. The core never touches
// device files, sysfs or mount tables directly.

// ConnectionHandle is an opaque token a DeviceEnumerator hands out
// and a SessionService consumes. Its concrete type is private to the
// host package that produced it.
type ConnectionHandle interface{}

type DeviceInfo struct {
	Vendor  string
	Product string
	Path    string
	Handle  ConnectionHandle
}

// DeviceEnumerator lists attached medium changer devices.
type DeviceEnumerator interface {
	Changers() ([]DeviceInfo, error)
}

// SessionService opens exactly one of the two session styles for a
// device. A service that only supports one style returns
// ErrOpenFailed from the other method. The boolean from OpenSync
// reports whether exclusive access was obtained.
type SessionService interface {
	OpenSync(handle ConnectionHandle) (TaskDevice, bool, error)
	OpenAsync(handle ConnectionHandle) (PacketLogin, EventPump, error)
}

type MountInfo struct {
	Name string
	Size string
}

// MountObserver waits for the operating system to mount a newly
// loaded medium. It exists for user feedback only; no control flow
// depends on it.
type MountObserver interface {
	WaitForMount(timeout time.Duration) (MountInfo, bool, error)
}
