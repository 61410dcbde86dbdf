// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package host

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mchanger/pkg/smc"
)

const scsiGenericClassPath = "/sys/class/scsi_generic"

// sgHandle is the concrete connection handle this host package hands
// out: the sg device node path.
type sgHandle struct {
	devicePath string
}

// SgDeviceEnumerator finds medium changers among the SCSI generic
// devices the kernel exposes.
type SgDeviceEnumerator struct {
	classPath string
}

func NewDeviceEnumerator() SgDeviceEnumerator {
	return SgDeviceEnumerator{classPath: scsiGenericClassPath}
}

func (enumerator SgDeviceEnumerator) Changers() ([]smc.DeviceInfo, error) {
	entries, err := os.ReadDir(enumerator.classPath)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", enumerator.classPath, err)
	}
	var devices []smc.DeviceInfo
	for _, entry := range entries {
		deviceDir := filepath.Join(enumerator.classPath, entry.Name(), "device")
		peripheralType, err := readSysfsAttribute(deviceDir, "type")
		if err != nil || peripheralType != "8" {
			continue
		}
		vendor, _ := readSysfsAttribute(deviceDir, "vendor")
		model, _ := readSysfsAttribute(deviceDir, "model")
		devicePath := filepath.Join("/dev", entry.Name())
		devices = append(devices, smc.DeviceInfo{
			Vendor:  vendor,
			Product: model,
			Path:    devicePath,
			Handle:  &sgHandle{devicePath: devicePath},
		})
	}
	return devices, nil
}

func readSysfsAttribute(directory, name string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(directory, name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
