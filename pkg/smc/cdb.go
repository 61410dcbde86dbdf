// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package smc

import "encoding/binary"

// Command descriptor block encoders. Every encoder returns a freshly
// allocated CDB of the exact length its command group requires, with
// all reserved bytes zero and multi-byte fields big-endian.

const (
	// StandardInquiryLength is the allocation a standard INQUIRY
	// needs to cover vendor, product and revision.
	StandardInquiryLength = 96

	// elementPageCode is the element address assignment mode page.
	elementPageCode byte = 0x1d
)

func EncodeInquiry(allocationLength uint16) []byte {
	cdb := make([]byte, 6)
	cdb[0] = byte(Inquiry)
	binary.BigEndian.PutUint16(cdb[3:5], allocationLength)
	return cdb
}

// EncodeInquiryVPD builds an INQUIRY with the EVPD bit set for one
// vital product data page.
func EncodeInquiryVPD(page byte, allocationLength uint16) []byte {
	cdb := make([]byte, 6)
	cdb[0] = byte(Inquiry)
	cdb[1] = 0x01
	cdb[2] = page
	binary.BigEndian.PutUint16(cdb[3:5], allocationLength)
	return cdb
}

func EncodeTestUnitReady() []byte {
	return make([]byte, 6)
}

func EncodeInitializeElementStatus() []byte {
	cdb := make([]byte, 6)
	cdb[0] = byte(InitializeElementStatus)
	return cdb
}

// EncodeModeSenseElementPage requests the element address assignment
// page with block descriptors disabled.
func EncodeModeSenseElementPage(allocationLength uint16) []byte {
	cdb := make([]byte, 10)
	cdb[0] = byte(ModeSense10)
	cdb[1] = 0x08 // DBD
	cdb[2] = elementPageCode
	binary.BigEndian.PutUint16(cdb[7:9], allocationLength)
	return cdb
}

// EncodeReadElementStatus scopes the read to one element kind, or to
// all kinds with KindAll. The allocation length field is 24 bits wide
// and the encoder truncates accordingly.
func EncodeReadElementStatus(kind ElementKind, start uint16, count uint16, allocationLength uint32) []byte {
	cdb := make([]byte, 12)
	cdb[0] = byte(ReadElementStatus)
	cdb[1] = byte(kind) & 0x0f
	binary.BigEndian.PutUint16(cdb[2:4], start)
	binary.BigEndian.PutUint16(cdb[4:6], count)
	cdb[6] = byte(allocationLength >> 16)
	cdb[7] = byte(allocationLength >> 8)
	cdb[8] = byte(allocationLength)
	return cdb
}

func EncodeMoveMedium(transport, source, destination uint16) []byte {
	cdb := make([]byte, 12)
	cdb[0] = byte(MoveMedium)
	binary.BigEndian.PutUint16(cdb[2:4], transport)
	binary.BigEndian.PutUint16(cdb[4:6], source)
	binary.BigEndian.PutUint16(cdb[6:8], destination)
	return cdb
}

func EncodeLogSense(page byte, allocationLength uint16) []byte {
	cdb := make([]byte, 10)
	cdb[0] = byte(LogSense)
	cdb[2] = page & 0x3f
	binary.BigEndian.PutUint16(cdb[7:9], allocationLength)
	return cdb
}

func EncodeReportLuns(allocationLength uint32) []byte {
	cdb := make([]byte, 12)
	cdb[0] = byte(ReportLuns)
	binary.BigEndian.PutUint32(cdb[6:10], allocationLength)
	return cdb
}
