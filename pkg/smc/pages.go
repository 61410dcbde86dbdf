// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package smc

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// DecodeInquiry parses a standard INQUIRY response.
func DecodeInquiry(buffer []byte) (DeviceIdentity, error) {
	if len(buffer) < 36 {
		return DeviceIdentity{}, ErrMalformedResponse{
			Reason: fmt.Sprintf("inquiry response truncated at %d bytes", len(buffer)),
		}
	}
	return DeviceIdentity{
		Vendor:         trimPadding(buffer[8:16]),
		Product:        trimPadding(buffer[16:32]),
		Revision:       trimPadding(buffer[32:36]),
		PeripheralType: buffer[0] & 0x1f,
	}, nil
}

// DecodeVPDPage returns the page code and payload of a vital product
// data response.
func DecodeVPDPage(buffer []byte) (byte, []byte, error) {
	if len(buffer) < 4 {
		return 0, nil, ErrMalformedResponse{
			Reason: fmt.Sprintf("vpd page header truncated at %d bytes", len(buffer)),
		}
	}
	length := int(binary.BigEndian.Uint16(buffer[2:4]))
	if length > len(buffer)-4 {
		length = len(buffer) - 4
	}
	return buffer[1], buffer[4 : 4+length], nil
}

// DecodeLogPage returns the page code and parameter payload of a LOG
// SENSE response.
func DecodeLogPage(buffer []byte) (byte, []byte, error) {
	if len(buffer) < 4 {
		return 0, nil, ErrMalformedResponse{
			Reason: fmt.Sprintf("log page header truncated at %d bytes", len(buffer)),
		}
	}
	length := int(binary.BigEndian.Uint16(buffer[2:4]))
	if length > len(buffer)-4 {
		length = len(buffer) - 4
	}
	return buffer[0] & 0x3f, buffer[4 : 4+length], nil
}

// DecodeReportLuns parses the 8-byte LUN entries of a REPORT LUNS
// response.
func DecodeReportLuns(buffer []byte) ([]uint64, error) {
	if len(buffer) < 8 {
		return nil, ErrMalformedResponse{
			Reason: fmt.Sprintf("report luns header truncated at %d bytes", len(buffer)),
		}
	}
	listLength := int(binary.BigEndian.Uint32(buffer[0:4]))
	if listLength > len(buffer)-8 {
		listLength = len(buffer) - 8
	}
	luns := make([]uint64, 0, listLength/8)
	for offset := 8; offset+8 <= 8+listLength; offset += 8 {
		luns = append(luns, binary.BigEndian.Uint64(buffer[offset:offset+8]))
	}
	return luns, nil
}

// FormatHex renders a response payload the way the raw-page commands
// print it: sixteen bytes per row, offset-prefixed.
func FormatHex(data []byte) string {
	var builder strings.Builder
	for offset := 0; offset < len(data); offset += 16 {
		end := offset + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(&builder, "%04x:", offset)
		for _, b := range data[offset:end] {
			fmt.Fprintf(&builder, " %02x", b)
		}
		builder.WriteByte('\n')
	}
	return builder.String()
}

func trimPadding(raw []byte) string {
	return strings.TrimRight(strings.TrimRight(string(raw), "\x00"), " ")
}
