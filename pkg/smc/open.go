// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package smc

import (
	"strings"

	"go.uber.org/multierr"

	"mchanger/pkg/logger"
)

// The changer family this tool grew up on. Other units work behind
// the Force option.
const (
	knownVendor  = "SONY"
	knownProduct = "VAIOChanger1"
)

// OpenOptions select and open one changer session.
type OpenOptions struct {
	// DeviceName narrows the choice to devices whose product or
	// path contains this substring.
	DeviceName string

	// Force accepts a changer outside the known vendor/product
	// family.
	Force bool

	Config Config
}

// Open enumerates changers, picks one and establishes a session. The
// synchronous session style is preferred; the asynchronous one is
// the fallback. Failure to get exclusive access is only a warning:
// the session proceeds shared.
func Open(enumerator DeviceEnumerator, sessions SessionService, options OpenOptions) (*Changer, error) {
	devices, err := enumerator.Changers()
	if err != nil {
		return nil, err
	}
	device, err := pickDevice(devices, options)
	if err != nil {
		return nil, err
	}
	logger.GetLogger().Infof(
		"opening changer %q %q at %s", device.Vendor, device.Product, device.Path)
	transport, exclusive, err := openTransport(sessions, device)
	if err != nil {
		return nil, err
	}
	if !exclusive {
		logger.GetLogger().Warn(
			"could not get exclusive access, another initiator may interfere")
	}
	changer := NewChanger(transport, device, exclusive, options.Config)
	if !options.Config.SkipReadyCheck {
		if err = changer.TestUnitReady(); err != nil {
			closeErr := changer.Close()
			return nil, multierr.Append(err, closeErr)
		}
	}
	return changer, nil
}

func pickDevice(devices []DeviceInfo, options OpenOptions) (DeviceInfo, error) {
	if options.DeviceName != "" {
		for _, device := range devices {
			if strings.Contains(device.Product, options.DeviceName) ||
				strings.Contains(device.Path, options.DeviceName) {
				return device, nil
			}
		}
		return DeviceInfo{}, ErrNotFound{What: "changer device matching " + options.DeviceName}
	}
	for _, device := range devices {
		if strings.EqualFold(device.Vendor, knownVendor) &&
			strings.Contains(device.Product, knownProduct) {
			return device, nil
		}
	}
	if options.Force && len(devices) > 0 {
		logger.GetLogger().Warnf(
			"no %s %s attached, forcing first changer %q %q",
			knownVendor, knownProduct, devices[0].Vendor, devices[0].Product)
		return devices[0], nil
	}
	return DeviceInfo{}, ErrNotFound{What: "supported changer device"}
}

func openTransport(sessions SessionService, device DeviceInfo) (Transport, bool, error) {
	task, exclusive, syncErr := sessions.OpenSync(device.Handle)
	if syncErr == nil {
		return NewSyncTransport(task), exclusive, nil
	}
	logger.GetLogger().Debugf(
		"synchronous session on %s failed, trying asynchronous: %v", device.Path, syncErr)
	login, pump, asyncErr := sessions.OpenAsync(device.Handle)
	if asyncErr == nil {
		return NewAsyncTransport(login, pump), true, nil
	}
	return nil, false, ErrOpenFailed{
		Path:  device.Path,
		Cause: multierr.Append(syncErr, asyncErr),
	}
}
