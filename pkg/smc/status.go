// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package smc

import (
	"encoding/binary"
	"fmt"
)

// Flag bits of an element descriptor. The "full" bit moved between
// device generations: VAIOChanger1 units report it in bit 0, XL1B
// units in bit 5. ChooseFullMask picks the interpretation.
const (
	FullBitPrimary   byte = 0x01
	FullBitAlternate byte = 0x20
	exceptionBit     byte = 0x80
	sourceValidBit   byte = 0x80
)

// ElementDescriptor is one raw descriptor from an element status
// page, before the full-bit interpretation is applied.
type ElementDescriptor struct {
	Kind          ElementKind
	Address       uint16
	Flags         byte
	SourceValid   bool
	SourceAddress uint16

	// ZeroFiller marks an all-zero storage descriptor with address
	// zero, which some units emit to pad a page. Fillers never enter
	// a topology.
	ZeroFiller bool
}

func (descriptor ElementDescriptor) Exception() bool {
	return descriptor.Flags&exceptionBit != 0
}

func (descriptor ElementDescriptor) FullWith(mask byte) bool {
	return descriptor.Flags&mask != 0
}

// Status materializes the descriptor under one full-bit mask.
func (descriptor ElementDescriptor) Status(fullMask byte) ElementStatus {
	return ElementStatus{
		Address:       descriptor.Address,
		Full:          descriptor.FullWith(fullMask),
		Exception:     descriptor.Exception(),
		SourceValid:   descriptor.SourceValid,
		SourceAddress: descriptor.SourceAddress,
	}
}

type ElementStatusPage struct {
	Kind               ElementKind
	PrimaryVolumeTag   bool
	AlternateVolumeTag bool
	DescriptorLength   uint16
	Descriptors        []ElementDescriptor
}

type StatusReport struct {
	FirstAddress uint16
	ElementCount uint16
	ByteCount    uint32
	Pages        []ElementStatusPage
}

// DecodeElementStatus parses a READ ELEMENT STATUS response. A report
// byte count of zero means the addressed range holds no elements and
// yields an empty page list. A zero descriptor length or zero page
// byte count terminates the page walk.
func DecodeElementStatus(buffer []byte) (StatusReport, error) {
	if len(buffer) < 8 {
		return StatusReport{}, ErrMalformedResponse{
			Reason: fmt.Sprintf("element status header truncated at %d bytes", len(buffer)),
		}
	}
	report := StatusReport{
		FirstAddress: binary.BigEndian.Uint16(buffer[0:2]),
		ElementCount: binary.BigEndian.Uint16(buffer[2:4]),
		ByteCount:    uint24(buffer[5:8]),
	}
	if report.ByteCount == 0 {
		return report, nil
	}
	remaining := int(report.ByteCount)
	if remaining > len(buffer)-8 {
		remaining = len(buffer) - 8
	}
	offset := 8
	for remaining >= 8 {
		page := ElementStatusPage{
			Kind:               ElementKind(buffer[offset] & 0x0f),
			PrimaryVolumeTag:   buffer[offset+1]&0x80 != 0,
			AlternateVolumeTag: buffer[offset+1]&0x40 != 0,
			DescriptorLength:   binary.BigEndian.Uint16(buffer[offset+2 : offset+4]),
		}
		pageBytes := int(uint24(buffer[offset+5 : offset+8]))
		if page.DescriptorLength == 0 || pageBytes == 0 {
			break
		}
		offset += 8
		remaining -= 8
		if pageBytes > remaining {
			pageBytes = remaining
		}
		descriptorLength := int(page.DescriptorLength)
		for consumed := 0; consumed+descriptorLength <= pageBytes; consumed += descriptorLength {
			descriptor, err := decodeDescriptor(
				page.Kind, buffer[offset+consumed:offset+consumed+descriptorLength])
			if err != nil {
				return StatusReport{}, err
			}
			page.Descriptors = append(page.Descriptors, descriptor)
		}
		report.Pages = append(report.Pages, page)
		offset += pageBytes
		remaining -= pageBytes
	}
	return report, nil
}

func decodeDescriptor(kind ElementKind, raw []byte) (ElementDescriptor, error) {
	if len(raw) < 3 {
		return ElementDescriptor{}, ErrMalformedResponse{
			Reason: fmt.Sprintf("element descriptor truncated at %d bytes", len(raw)),
		}
	}
	descriptor := ElementDescriptor{
		Kind:    kind,
		Address: binary.BigEndian.Uint16(raw[0:2]),
		Flags:   raw[2],
	}
	if len(raw) >= 12 {
		descriptor.SourceValid = raw[9]&sourceValidBit != 0
		if descriptor.SourceValid {
			descriptor.SourceAddress = binary.BigEndian.Uint16(raw[10:12])
		}
	}
	if kind == KindStorage && descriptor.Address == 0 && descriptor.Flags == 0 &&
		!descriptor.SourceValid && allZero(raw) {
		descriptor.ZeroFiller = true
	}
	return descriptor, nil
}

// ChooseFullMask probes which bit position carries the full flag.
// Bit 0 is preferred; bit 5 wins only when bit 0 claims every element
// empty while bit 5 is set somewhere, which on a unit with media
// present means the bit 0 reading is the inconsistent one.
func ChooseFullMask(pages []ElementStatusPage) byte {
	sawPrimary, sawAlternate := false, false
	for _, page := range pages {
		for _, descriptor := range page.Descriptors {
			if descriptor.ZeroFiller {
				continue
			}
			if descriptor.FullWith(FullBitPrimary) {
				sawPrimary = true
			}
			if descriptor.FullWith(FullBitAlternate) {
				sawAlternate = true
			}
		}
	}
	if !sawPrimary && sawAlternate {
		return FullBitAlternate
	}
	return FullBitPrimary
}

func uint24(raw []byte) uint32 {
	return uint32(raw[0])<<16 | uint32(raw[1])<<8 | uint32(raw[2])
}

func allZero(raw []byte) bool {
	for _, b := range raw {
		if b != 0 {
			return false
		}
	}
	return true
}
