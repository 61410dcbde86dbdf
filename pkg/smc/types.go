// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package smc

import (
	"fmt"
	"time"
)

type CommandType byte

const (
	TestUnitReady           CommandType = 0x00
	InitializeElementStatus CommandType = 0x07
	Inquiry                 CommandType = 0x12
	LogSense                CommandType = 0x4d
	ModeSense10             CommandType = 0x5a
	ReportLuns              CommandType = 0xa0
	MoveMedium              CommandType = 0xa5
	ReadElementStatus       CommandType = 0xb8
)

func (commandType CommandType) String() string {
	types := map[CommandType]string{
		TestUnitReady:           "TestUnitReady",
		InitializeElementStatus: "InitializeElementStatus",
		Inquiry:                 "Inquiry",
		LogSense:                "LogSense",
		ModeSense10:             "ModeSense10",
		ReportLuns:              "ReportLuns",
		MoveMedium:              "MoveMedium",
		ReadElementStatus:       "ReadElementStatus",
	}
	result, ok := types[commandType]
	if !ok {
		return fmt.Sprintf("0x%x", int(commandType))
	}
	return result
}

// ElementKind is the element type code carried in the low four bits
// of a READ ELEMENT STATUS page header and descriptor.
type ElementKind byte

const (
	KindAll          ElementKind = 0x00
	KindTransport    ElementKind = 0x01
	KindStorage      ElementKind = 0x02
	KindImportExport ElementKind = 0x03
	KindDrive        ElementKind = 0x04
)

func (kind ElementKind) String() string {
	switch kind {
	case KindAll:
		return "all"
	case KindTransport:
		return "transport"
	case KindStorage:
		return "storage"
	case KindImportExport:
		return "import/export"
	case KindDrive:
		return "drive"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(kind))
	}
}

type DataDirection int

const (
	DataNone DataDirection = iota
	DataFromDevice
	DataToDevice
)

// Task status values from the SCSI architecture model.
const (
	TaskStatusGood                byte = 0x00
	TaskStatusCheckCondition      byte = 0x02
	TaskStatusBusy                byte = 0x08
	TaskStatusReservationConflict byte = 0x18
	TaskStatusTaskAborted         byte = 0x40
)

// Request is the unit of work both transport variants accept. It has
// no identity beyond a single exchange.
type Request struct {
	CDB       []byte
	Direction DataDirection
	Buffer    []byte
	Timeout   time.Duration
}

// Result reports one completed exchange. Transferred is diagnostic
// only and never changes control flow.
type Result struct {
	Status      byte
	Sense       SenseData
	Transferred int
}

// AddressAssignment is the element address assignment mode page:
// the device-reported (first address, count) pair per element kind.
type AddressAssignment struct {
	FirstTransport    uint16
	TransportCount    uint16
	FirstStorage      uint16
	StorageCount      uint16
	FirstImportExport uint16
	ImportExportCount uint16
	FirstDrive        uint16
	DriveCount        uint16
}

// Topology is a freshly discovered set of element addresses grouped
// by kind. Addresses are device-assigned; a slot's position in the
// Slots list is the only notion of "slot number" the API exposes,
// and it may shift between queries.
type Topology struct {
	Transports    []uint16
	Slots         []uint16
	Drives        []uint16
	ImportExports []uint16
}

func (topology Topology) Empty() bool {
	return len(topology.Transports) == 0 &&
		len(topology.Slots) == 0 &&
		len(topology.Drives) == 0 &&
		len(topology.ImportExports) == 0
}

// ElementStatus is a point-in-time snapshot of one element. It is
// stale as soon as the next device-mutating command is issued.
type ElementStatus struct {
	Address       uint16
	Full          bool
	Exception     bool
	SourceValid   bool
	SourceAddress uint16
}

// DeviceIdentity is the decoded standard INQUIRY identification.
type DeviceIdentity struct {
	Vendor         string
	Product        string
	Revision       string
	PeripheralType byte
}

// PeripheralTypeChanger is the INQUIRY peripheral device type of a
// medium changer.
const PeripheralTypeChanger byte = 0x08
