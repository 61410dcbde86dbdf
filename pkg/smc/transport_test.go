// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package smc

import (
	"testing"
	"time"
)

type fakeTaskDevice struct {
	status    byte
	sense     SenseData
	released  int
	lastCDB   []byte
	transfers int
}

func (device *fakeTaskDevice) ExecuteTask(cdb []byte, direction DataDirection, buffer []byte, timeout time.Duration) (Result, error) {
	device.lastCDB = cdb
	device.transfers++
	return Result{Status: device.status, Sense: device.sense, Transferred: len(buffer)}, nil
}

func (device *fakeTaskDevice) Release() error {
	device.released++
	return nil
}

func TestSyncTransportGoodStatus(t *testing.T) {
	device := &fakeTaskDevice{status: TaskStatusGood}
	transport := NewSyncTransport(device)
	result, err := transport.Execute(Request{
		CDB:     EncodeTestUnitReady(),
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.Status != TaskStatusGood {
		t.Errorf("status 0x%02x", result.Status)
	}
}

func TestSyncTransportCheckCondition(t *testing.T) {
	device := &fakeTaskDevice{
		status: TaskStatusCheckCondition,
		sense:  SenseData{Valid: true, Key: SenseNotReady, ASC: 0x3a},
	}
	transport := NewSyncTransport(device)
	_, err := transport.Execute(Request{
		CDB:     EncodeTestUnitReady(),
		Timeout: time.Second,
	})
	rejected, ok := err.(ErrHardwareRejected)
	if !ok {
		t.Fatalf("expected ErrHardwareRejected, got %v", err)
	}
	if rejected.Sense.Key != SenseNotReady || rejected.Sense.ASC != 0x3a {
		t.Errorf("sense lost: %+v", rejected.Sense)
	}
}

func TestSyncTransportClosesOnce(t *testing.T) {
	device := &fakeTaskDevice{}
	transport := NewSyncTransport(device)
	if err := transport.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := transport.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	if device.released != 1 {
		t.Errorf("device released %d times", device.released)
	}
}

func TestTransportRejectsBadRequests(t *testing.T) {
	transport := NewSyncTransport(&fakeTaskDevice{})
	requests := []Request{
		{Timeout: time.Second},
		{CDB: EncodeTestUnitReady()},
		{CDB: EncodeTestUnitReady(), Timeout: time.Second, Buffer: make([]byte, 8)},
	}
	for index, request := range requests {
		if _, err := transport.Execute(request); err == nil {
			t.Errorf("request %d: expected ErrInvalidArgument", index)
		}
	}
}

// fakeOperationRequest records the block setup calls an async
// exchange makes.
type fakeOperationRequest struct {
	cdb             []byte
	timeout         time.Duration
	buffersReleased bool
	released        bool
}

func (block *fakeOperationRequest) SetCommandBlock(cdb []byte) error {
	block.cdb = cdb
	return nil
}

func (block *fakeOperationRequest) SetTimeout(timeout time.Duration) {
	block.timeout = timeout
}

func (block *fakeOperationRequest) SetDataBuffer(buffer []byte, direction DataDirection) error {
	return nil
}

func (block *fakeOperationRequest) ReleaseBuffers() {
	block.buffersReleased = true
}

func (block *fakeOperationRequest) Release() {
	block.released = true
}

// fakePacketLogin completes a submitted request after a configurable
// number of pump slices, or never.
type fakePacketLogin struct {
	block     *fakeOperationRequest
	notify    func(CompletionEvent)
	event     CompletionEvent
	doorbells int
	loggedOut bool
	released  bool
}

func (login *fakePacketLogin) NewRequest() (OperationRequest, error) {
	login.block = &fakeOperationRequest{}
	return login.block, nil
}

func (login *fakePacketLogin) Submit(request OperationRequest, notify func(CompletionEvent)) error {
	login.notify = notify
	return nil
}

func (login *fakePacketLogin) RingDoorbell() error {
	login.doorbells++
	return nil
}

func (login *fakePacketLogin) Logout() error {
	login.loggedOut = true
	return nil
}

func (login *fakePacketLogin) Release() error {
	login.released = true
	return nil
}

type fakeEventPump struct {
	login           *fakePacketLogin
	slicesUntilDone int
	slices          int
}

func (pump *fakeEventPump) RunOnce(slice time.Duration) {
	pump.slices++
	if pump.slicesUntilDone > 0 && pump.slices >= pump.slicesUntilDone {
		pump.login.notify(pump.login.event)
		return
	}
	time.Sleep(slice)
}

func TestAsyncTransportCompletion(t *testing.T) {
	login := &fakePacketLogin{event: CompletionEvent{Normal: true}}
	pump := &fakeEventPump{login: login, slicesUntilDone: 2}
	transport := NewAsyncTransport(login, pump)
	buffer := make([]byte, 16)
	result, err := transport.Execute(Request{
		CDB:       EncodeInquiry(16),
		Direction: DataFromDevice,
		Buffer:    buffer,
		Timeout:   time.Second,
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.Status != TaskStatusGood || result.Transferred != 16 {
		t.Errorf("result %+v", result)
	}
	if login.doorbells != 1 {
		t.Errorf("doorbell rung %d times", login.doorbells)
	}
	if !login.block.released || !login.block.buffersReleased {
		t.Error("request block not released")
	}
}

func TestAsyncTransportFailedCompletion(t *testing.T) {
	login := &fakePacketLogin{event: CompletionEvent{Normal: false, PacketStatus: 0x0b}}
	pump := &fakeEventPump{login: login, slicesUntilDone: 1}
	transport := NewAsyncTransport(login, pump)
	_, err := transport.Execute(Request{
		CDB:     EncodeTestUnitReady(),
		Timeout: time.Second,
	})
	rejected, ok := err.(ErrHardwareRejected)
	if !ok {
		t.Fatalf("expected ErrHardwareRejected, got %v", err)
	}
	if rejected.Status != 0x0b {
		t.Errorf("packet status 0x%02x", rejected.Status)
	}
}

// A never-completing exchange must give up no later than the request
// timeout plus one pump slice, with resources released.
func TestAsyncTransportTimeout(t *testing.T) {
	login := &fakePacketLogin{}
	pump := &fakeEventPump{login: login}
	transport := NewAsyncTransport(login, pump)
	timeout := 150 * time.Millisecond
	started := time.Now()
	_, err := transport.Execute(Request{
		CDB:     EncodeTestUnitReady(),
		Timeout: timeout,
	})
	elapsed := time.Since(started)
	if _, ok := err.(ErrTimeout); !ok {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if limit := timeout + eventPumpSlice + 50*time.Millisecond; elapsed > limit {
		t.Errorf("gave up after %v, limit %v", elapsed, limit)
	}
	if !login.block.released {
		t.Error("request block leaked on timeout")
	}
}

func TestAsyncTransportCloseLogsOutOnce(t *testing.T) {
	login := &fakePacketLogin{}
	transport := NewAsyncTransport(login, &fakeEventPump{login: login})
	if err := transport.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := transport.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	if !login.loggedOut || !login.released {
		t.Error("login not torn down")
	}
}
