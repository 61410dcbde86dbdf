// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package smc

import (
	"fmt"
	"time"
)

type ErrInvalidArgument struct {
	Reason string
}

func (err ErrInvalidArgument) Error() string {
	return fmt.Sprintf("invalid argument: %s", err.Reason)
}

type ErrOutOfRange struct {
	What  string
	Index int
	Count int
}

func (err ErrOutOfRange) Error() string {
	return fmt.Sprintf(
		"%s index %d is out of range, device reports %d",
		err.What, err.Index, err.Count)
}

type ErrNotFound struct {
	What string
}

func (err ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found", err.What)
}

type ErrTimeout struct {
	Operation string
	Timeout   time.Duration
}

func (err ErrTimeout) Error() string {
	return fmt.Sprintf("%s did not complete within %v", err.Operation, err.Timeout)
}

// ErrHardwareRejected reports a command the device accepted on the
// wire but refused, either with a SCSI check condition or with a
// non-normal packet completion status.
type ErrHardwareRejected struct {
	Operation string
	Status    byte
	Sense     SenseData
}

func (err ErrHardwareRejected) Error() string {
	if err.Sense.Valid {
		return fmt.Sprintf(
			"%s rejected by device: status 0x%02x, %s",
			err.Operation, err.Status, err.Sense.String())
	}
	return fmt.Sprintf(
		"%s rejected by device: status 0x%02x", err.Operation, err.Status)
}

type ErrMalformedResponse struct {
	Reason string
}

func (err ErrMalformedResponse) Error() string {
	return fmt.Sprintf("malformed device response: %s", err.Reason)
}

type ErrEmptySource struct {
	Slot int
}

func (err ErrEmptySource) Error() string {
	return fmt.Sprintf("slot %d is empty", err.Slot)
}

// ErrUnknownSource means a drive holds a medium but the device did
// not report a valid source address, so the medium cannot be put
// back before loading another one.
type ErrUnknownSource struct {
	Drive int
}

func (err ErrUnknownSource) Error() string {
	return fmt.Sprintf(
		"drive %d holds a medium with no recorded source slot", err.Drive)
}

type ErrNoTransport struct{}

func (err ErrNoTransport) Error() string {
	return "device reported no media transport element"
}

type ErrNoElementsReported struct{}

func (err ErrNoElementsReported) Error() string {
	return "device reported no elements of any kind"
}

type ErrOpenFailed struct {
	Path  string
	Cause error
}

func (err ErrOpenFailed) Error() string {
	return fmt.Sprintf("could not open changer session on %s: %v", err.Path, err.Cause)
}
