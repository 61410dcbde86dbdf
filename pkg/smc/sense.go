// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package smc

import "fmt"

// Sense keys from the fixed-format sense data.
const (
	SenseNoSense        byte = 0x00
	SenseRecoveredError byte = 0x01
	SenseNotReady       byte = 0x02
	SenseMediumError    byte = 0x03
	SenseHardwareError  byte = 0x04
	SenseIllegalRequest byte = 0x05
	SenseUnitAttention  byte = 0x06
	SenseDataProtect    byte = 0x07
	SenseBlankCheck     byte = 0x08
	SenseVendorSpecific byte = 0x09
	SenseCopyAborted    byte = 0x0a
	SenseAbortedCommand byte = 0x0b
	SenseVolumeOverflow byte = 0x0d
	SenseMiscompare     byte = 0x0e
)

func SenseKeyName(key byte) string {
	names := map[byte]string{
		SenseNoSense:        "NO SENSE",
		SenseRecoveredError: "RECOVERED ERROR",
		SenseNotReady:       "NOT READY",
		SenseMediumError:    "MEDIUM ERROR",
		SenseHardwareError:  "HARDWARE ERROR",
		SenseIllegalRequest: "ILLEGAL REQUEST",
		SenseUnitAttention:  "UNIT ATTENTION",
		SenseDataProtect:    "DATA PROTECT",
		SenseBlankCheck:     "BLANK CHECK",
		SenseVendorSpecific: "VENDOR SPECIFIC",
		SenseCopyAborted:    "COPY ABORTED",
		SenseAbortedCommand: "ABORTED COMMAND",
		SenseVolumeOverflow: "VOLUME OVERFLOW",
		SenseMiscompare:     "MISCOMPARE",
	}
	name, ok := names[key]
	if !ok {
		return fmt.Sprintf("RESERVED(0x%02x)", key)
	}
	return name
}

// SenseData is decoded fixed-format sense. Valid is false when the
// device returned no sense bytes or an unrecognized response code.
type SenseData struct {
	Valid        bool
	ResponseCode byte
	Key          byte
	ASC          byte
	ASCQ         byte
}

func (sense SenseData) String() string {
	if !sense.Valid {
		return "no sense data"
	}
	return fmt.Sprintf(
		"sense key %s (0x%02x), asc 0x%02x, ascq 0x%02x",
		SenseKeyName(sense.Key), sense.Key, sense.ASC, sense.ASCQ)
}

// DecodeSense parses a fixed-format sense buffer. Descriptor-format
// sense and short buffers decode as not valid rather than erroring,
// since sense only ever annotates an already-failed command.
func DecodeSense(buffer []byte) SenseData {
	if len(buffer) < 14 {
		return SenseData{}
	}
	responseCode := buffer[0] & 0x7f
	if responseCode != 0x70 && responseCode != 0x71 {
		return SenseData{}
	}
	return SenseData{
		Valid:        true,
		ResponseCode: responseCode,
		Key:          buffer[2] & 0x0f,
		ASC:          buffer[12],
		ASCQ:         buffer[13],
	}
}
