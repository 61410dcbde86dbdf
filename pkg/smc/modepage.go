// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package smc

import (
	"encoding/binary"
	"fmt"
)

// DecodeElementAddressAssignment parses a MODE SENSE(10) response
// carrying the element address assignment page. The page is located
// past the 8-byte mode parameter header and any block descriptors the
// device returned despite the DBD bit.
func DecodeElementAddressAssignment(buffer []byte) (AddressAssignment, error) {
	if len(buffer) < 8 {
		return AddressAssignment{}, ErrMalformedResponse{
			Reason: fmt.Sprintf("mode parameter header truncated at %d bytes", len(buffer)),
		}
	}
	modeDataLength := int(binary.BigEndian.Uint16(buffer[0:2])) + 2
	if modeDataLength > len(buffer) {
		modeDataLength = len(buffer)
	}
	blockDescriptorLength := int(binary.BigEndian.Uint16(buffer[6:8]))
	pageOffset := 8 + blockDescriptorLength
	if pageOffset+2 > modeDataLength {
		return AddressAssignment{}, ErrMalformedResponse{
			Reason: "mode data ends before the mode page header",
		}
	}
	page := buffer[pageOffset:modeDataLength]
	pageCode := page[0] & 0x3f
	pageLength := int(page[1])
	if pageCode != elementPageCode {
		return AddressAssignment{}, ErrMalformedResponse{
			Reason: fmt.Sprintf(
				"expected element address assignment page 0x%02x, device returned 0x%02x",
				elementPageCode, pageCode),
		}
	}
	if pageLength < 16 || len(page) < 2+16 {
		return AddressAssignment{}, ErrMalformedResponse{
			Reason: fmt.Sprintf("element address assignment page too short: %d bytes", pageLength),
		}
	}
	return AddressAssignment{
		FirstTransport:    binary.BigEndian.Uint16(page[2:4]),
		TransportCount:    binary.BigEndian.Uint16(page[4:6]),
		FirstStorage:      binary.BigEndian.Uint16(page[6:8]),
		StorageCount:      binary.BigEndian.Uint16(page[8:10]),
		FirstImportExport: binary.BigEndian.Uint16(page[10:12]),
		ImportExportCount: binary.BigEndian.Uint16(page[12:14]),
		FirstDrive:        binary.BigEndian.Uint16(page[14:16]),
		DriveCount:        binary.BigEndian.Uint16(page[16:18]),
	}, nil
}
