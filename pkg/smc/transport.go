// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package smc

import (
	"fmt"
	"time"

	"go.uber.org/multierr"

	"mchanger/pkg/logger"
)

// Transport executes one SCSI exchange at a time against an open
// changer session. Implementations are not safe for concurrent use;
// callers serialize.
type Transport interface {
	Execute(request Request) (Result, error)
	Close() error
}

// TaskDevice is the synchronous session contract: a host facility
// that runs a CDB to completion in one blocking call, SG_IO style.
type TaskDevice interface {
	ExecuteTask(cdb []byte, direction DataDirection, buffer []byte, timeout time.Duration) (Result, error)
	Release() error
}

type SyncTransport struct {
	device TaskDevice
	closed bool
}

func NewSyncTransport(device TaskDevice) *SyncTransport {
	return &SyncTransport{device: device}
}

func (transport *SyncTransport) Execute(request Request) (Result, error) {
	if err := checkRequest(request); err != nil {
		return Result{}, err
	}
	operation := CommandType(request.CDB[0]).String()
	result, err := transport.device.ExecuteTask(
		request.CDB, request.Direction, request.Buffer, request.Timeout)
	if err != nil {
		return result, err
	}
	if result.Status != TaskStatusGood {
		return result, ErrHardwareRejected{
			Operation: operation,
			Status:    result.Status,
			Sense:     result.Sense,
		}
	}
	logger.GetLogger().Debug(
		fmt.Sprintf("%s completed, %d bytes transferred", operation, result.Transferred))
	return result, nil
}

func (transport *SyncTransport) Close() error {
	if transport.closed {
		return nil
	}
	transport.closed = true
	return transport.device.Release()
}

// CompletionEvent is delivered by the host event pump when a
// submitted operation request block finishes.
type CompletionEvent struct {
	Normal       bool
	PacketStatus byte
	Details      byte
}

// OperationRequest is one asynchronous command in flight: an SBP-2
// operation request block plus its mapped data buffer.
type OperationRequest interface {
	SetCommandBlock(cdb []byte) error
	SetTimeout(timeout time.Duration)
	SetDataBuffer(buffer []byte, direction DataDirection) error
	ReleaseBuffers()
	Release()
}

// PacketLogin is the asynchronous session contract: a logged-in
// SBP-2 style initiator that accepts operation request blocks and
// signals the target through a doorbell register.
type PacketLogin interface {
	NewRequest() (OperationRequest, error)
	Submit(request OperationRequest, notify func(CompletionEvent)) error
	RingDoorbell() error
	Logout() error
	Release() error
}

// EventPump dispatches pending host events, including completion
// callbacks, for at most one time slice per call.
type EventPump interface {
	RunOnce(slice time.Duration)
}

// eventPumpSlice bounds how long a single pump call may block, which
// also bounds how far past its deadline an exchange can run.
const eventPumpSlice = 100 * time.Millisecond

type AsyncTransport struct {
	login  PacketLogin
	pump   EventPump
	closed bool
}

func NewAsyncTransport(login PacketLogin, pump EventPump) *AsyncTransport {
	return &AsyncTransport{login: login, pump: pump}
}

func (transport *AsyncTransport) Execute(request Request) (Result, error) {
	if err := checkRequest(request); err != nil {
		return Result{}, err
	}
	operation := CommandType(request.CDB[0]).String()
	block, err := transport.login.NewRequest()
	if err != nil {
		return Result{}, err
	}
	defer block.Release()
	if err = block.SetCommandBlock(request.CDB); err != nil {
		return Result{}, err
	}
	block.SetTimeout(request.Timeout)
	if request.Direction != DataNone && len(request.Buffer) > 0 {
		if err = block.SetDataBuffer(request.Buffer, request.Direction); err != nil {
			return Result{}, err
		}
		defer block.ReleaseBuffers()
	}
	var event CompletionEvent
	completed := false
	err = transport.login.Submit(block, func(completion CompletionEvent) {
		event = completion
		completed = true
	})
	if err != nil {
		return Result{}, err
	}
	if err = transport.login.RingDoorbell(); err != nil {
		return Result{}, err
	}
	deadline := time.Now().Add(request.Timeout + eventPumpSlice)
	for !completed {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Result{}, ErrTimeout{Operation: operation, Timeout: request.Timeout}
		}
		slice := eventPumpSlice
		if remaining < slice {
			slice = remaining
		}
		transport.pump.RunOnce(slice)
	}
	if !event.Normal {
		return Result{}, ErrHardwareRejected{
			Operation: operation,
			Status:    event.PacketStatus,
		}
	}
	return Result{Status: TaskStatusGood, Transferred: len(request.Buffer)}, nil
}

func (transport *AsyncTransport) Close() error {
	if transport.closed {
		return nil
	}
	transport.closed = true
	return multierr.Append(transport.login.Logout(), transport.login.Release())
}

func checkRequest(request Request) error {
	if len(request.CDB) == 0 {
		return ErrInvalidArgument{Reason: "empty command descriptor block"}
	}
	if request.Timeout <= 0 {
		return ErrInvalidArgument{Reason: "request timeout must be positive"}
	}
	if request.Direction == DataNone && len(request.Buffer) != 0 {
		return ErrInvalidArgument{Reason: "data buffer supplied without a direction"}
	}
	return nil
}
