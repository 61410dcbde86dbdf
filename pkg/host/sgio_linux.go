// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package host

import (
	"errors"
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"mchanger/pkg/smc"
)

const (
	sgDxferNone    int32 = -1
	sgDxferToDev   int32 = -2
	sgDxferFromDev int32 = -3

	sgIO            = 0x2285
	sgGetVersionNum = 0x2282

	// The sg driver grew the v3 interface in version 3.0.
	minimumSgVersion = 30000

	senseBufferLength = 32
)

// sgIoHdr mirrors struct sg_io_hdr from scsi/sg.h.
type sgIoHdr struct {
	interfaceID    int32
	dxferDirection int32
	cmdLen         uint8
	mxSbLen        uint8
	iovecCount     uint16
	dxferLen       uint32
	dxferp         *byte
	cmdp           *byte
	sbp            *byte
	timeout        uint32
	flags          uint32
	packID         int32
	usrPtr         *byte
	status         uint8
	maskedStatus   uint8
	msgStatus      uint8
	sbLenWr        uint8
	hostStatus     uint16
	driverStatus   uint16
	resid          int32
	duration       uint32
	info           uint32
}

// SgSessionService opens synchronous SG_IO sessions. The
// asynchronous session style has no backend on this host.
type SgSessionService struct{}

func NewSessionService() SgSessionService {
	return SgSessionService{}
}

func (service SgSessionService) OpenSync(handle smc.ConnectionHandle) (smc.TaskDevice, bool, error) {
	sg, ok := handle.(*sgHandle)
	if !ok {
		return nil, false, smc.ErrInvalidArgument{
			Reason: fmt.Sprintf("connection handle of type %T", handle)}
	}
	exclusive := true
	file, err := os.OpenFile(sg.devicePath, os.O_RDWR|unix.O_EXCL, 0)
	if err != nil {
		exclusive = false
		file, err = os.OpenFile(sg.devicePath, os.O_RDWR, 0)
	}
	if err != nil {
		return nil, false, smc.ErrOpenFailed{Path: sg.devicePath, Cause: err}
	}
	var version int32
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL, file.Fd(), sgGetVersionNum, uintptr(unsafe.Pointer(&version)))
	if errno != 0 || version < minimumSgVersion {
		closeErr := file.Close()
		if closeErr != nil {
			return nil, false, closeErr
		}
		return nil, false, smc.ErrOpenFailed{
			Path:  sg.devicePath,
			Cause: fmt.Errorf("sg driver version %d, need at least %d", version, minimumSgVersion),
		}
	}
	return &sgTaskDevice{file: file}, exclusive, nil
}

func (service SgSessionService) OpenAsync(handle smc.ConnectionHandle) (smc.PacketLogin, smc.EventPump, error) {
	path := ""
	if sg, ok := handle.(*sgHandle); ok {
		path = sg.devicePath
	}
	return nil, nil, smc.ErrOpenFailed{
		Path:  path,
		Cause: errors.New("asynchronous packet sessions are not available on this host"),
	}
}

type sgTaskDevice struct {
	file *os.File
}

func (device *sgTaskDevice) ExecuteTask(cdb []byte, direction smc.DataDirection, buffer []byte, timeout time.Duration) (smc.Result, error) {
	sense := make([]byte, senseBufferLength)
	header := sgIoHdr{
		interfaceID:    'S',
		dxferDirection: sgDirection(direction),
		cmdLen:         uint8(len(cdb)),
		mxSbLen:        senseBufferLength,
		cmdp:           &cdb[0],
		sbp:            &sense[0],
		timeout:        uint32(timeout / time.Millisecond),
	}
	if len(buffer) > 0 {
		header.dxferLen = uint32(len(buffer))
		header.dxferp = &buffer[0]
	}
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL, device.file.Fd(), sgIO, uintptr(unsafe.Pointer(&header)))
	if errno != 0 {
		return smc.Result{}, fmt.Errorf("SG_IO on %s: %w", device.file.Name(), errno)
	}
	result := smc.Result{
		Status:      header.status,
		Transferred: len(buffer) - int(header.resid),
	}
	if header.sbLenWr > 0 {
		result.Sense = smc.DecodeSense(sense[:header.sbLenWr])
	}
	return result, nil
}

func (device *sgTaskDevice) Release() error {
	return device.file.Close()
}

func sgDirection(direction smc.DataDirection) int32 {
	switch direction {
	case smc.DataFromDevice:
		return sgDxferFromDev
	case smc.DataToDevice:
		return sgDxferToDev
	default:
		return sgDxferNone
	}
}
