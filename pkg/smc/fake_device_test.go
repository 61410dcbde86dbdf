// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package smc

import (
	"bytes"
	"encoding/binary"
)

// fakeElement describes one descriptor a fake status page carries.
type fakeElement struct {
	address     uint16
	flags       byte
	sourceValid bool
	source      uint16
	filler      bool
}

func statusPageBytes(kind ElementKind, descriptorLength int, elements []fakeElement) []byte {
	var body bytes.Buffer
	for _, element := range elements {
		descriptor := make([]byte, descriptorLength)
		if !element.filler {
			binary.BigEndian.PutUint16(descriptor[0:2], element.address)
			descriptor[2] = element.flags
			if element.sourceValid && descriptorLength >= 12 {
				descriptor[9] = sourceValidBit
				binary.BigEndian.PutUint16(descriptor[10:12], element.source)
			}
		}
		body.Write(descriptor)
	}
	header := make([]byte, 8)
	header[0] = byte(kind)
	binary.BigEndian.PutUint16(header[2:4], uint16(descriptorLength))
	header[5] = byte(body.Len() >> 16)
	header[6] = byte(body.Len() >> 8)
	header[7] = byte(body.Len())
	return append(header, body.Bytes()...)
}

func statusReportBytes(first, count uint16, pages ...[]byte) []byte {
	var body bytes.Buffer
	for _, page := range pages {
		body.Write(page)
	}
	header := make([]byte, 8)
	binary.BigEndian.PutUint16(header[0:2], first)
	binary.BigEndian.PutUint16(header[2:4], count)
	header[5] = byte(body.Len() >> 16)
	header[6] = byte(body.Len() >> 8)
	header[7] = byte(body.Len())
	return append(header, body.Bytes()...)
}

func assignmentPageBytes(assignment AddressAssignment) []byte {
	buffer := make([]byte, 8+20)
	binary.BigEndian.PutUint16(buffer[0:2], uint16(len(buffer)-2))
	page := buffer[8:]
	page[0] = elementPageCode
	page[1] = 18
	binary.BigEndian.PutUint16(page[2:4], assignment.FirstTransport)
	binary.BigEndian.PutUint16(page[4:6], assignment.TransportCount)
	binary.BigEndian.PutUint16(page[6:8], assignment.FirstStorage)
	binary.BigEndian.PutUint16(page[8:10], assignment.StorageCount)
	binary.BigEndian.PutUint16(page[10:12], assignment.FirstImportExport)
	binary.BigEndian.PutUint16(page[12:14], assignment.ImportExportCount)
	binary.BigEndian.PutUint16(page[14:16], assignment.FirstDrive)
	binary.BigEndian.PutUint16(page[16:18], assignment.DriveCount)
	return buffer
}

// recordedMove is one MOVE MEDIUM the fake jukebox accepted.
type recordedMove struct {
	transport   uint16
	source      uint16
	destination uint16
}

// fakeJukebox implements Transport over an in-memory element model,
// so topology and orchestration logic run without hardware.
type fakeJukebox struct {
	assignment     AddressAssignment
	haveAssignment bool

	transports []uint16
	slots      []uint16
	ports      []uint16
	drives     []uint16

	full    map[uint16]bool
	sources map[uint16]uint16
	filler  int

	fullMask  byte
	pageLimit int

	failScoped bool

	moves         []recordedMove
	scopedQueries int
	closed        bool
}

func newFakeJukebox() *fakeJukebox {
	return &fakeJukebox{
		full:      map[uint16]bool{},
		sources:   map[uint16]uint16{},
		fullMask:  FullBitPrimary,
		pageLimit: storagePageLimit,
	}
}

func (jukebox *fakeJukebox) Close() error {
	jukebox.closed = true
	return nil
}

func (jukebox *fakeJukebox) Execute(request Request) (Result, error) {
	switch CommandType(request.CDB[0]) {
	case TestUnitReady:
		return Result{Status: TaskStatusGood}, nil
	case Inquiry:
		return jukebox.inquiry(request.Buffer)
	case ModeSense10:
		return jukebox.modeSense(request.Buffer)
	case ReadElementStatus:
		return jukebox.readElementStatus(request)
	case MoveMedium:
		return jukebox.moveMedium(request.CDB)
	default:
		return Result{}, ErrHardwareRejected{
			Operation: CommandType(request.CDB[0]).String(),
			Status:    TaskStatusCheckCondition,
			Sense:     SenseData{Valid: true, Key: SenseIllegalRequest, ASC: 0x20},
		}
	}
}

func (jukebox *fakeJukebox) inquiry(buffer []byte) (Result, error) {
	response := make([]byte, StandardInquiryLength)
	response[0] = PeripheralTypeChanger
	copy(response[8:16], "SONY    ")
	copy(response[16:32], "VAIOChanger1    ")
	copy(response[32:36], "1.00")
	transferred := copy(buffer, response)
	return Result{Status: TaskStatusGood, Transferred: transferred}, nil
}

func (jukebox *fakeJukebox) modeSense(buffer []byte) (Result, error) {
	if !jukebox.haveAssignment {
		return Result{}, ErrHardwareRejected{
			Operation: ModeSense10.String(),
			Status:    TaskStatusCheckCondition,
			Sense:     SenseData{Valid: true, Key: SenseIllegalRequest, ASC: 0x24},
		}
	}
	transferred := copy(buffer, assignmentPageBytes(jukebox.assignment))
	return Result{Status: TaskStatusGood, Transferred: transferred}, nil
}

func (jukebox *fakeJukebox) readElementStatus(request Request) (Result, error) {
	kind := ElementKind(request.CDB[1] & 0x0f)
	start := binary.BigEndian.Uint16(request.CDB[2:4])
	count := int(binary.BigEndian.Uint16(request.CDB[4:6]))
	if kind != KindAll {
		jukebox.scopedQueries++
		if jukebox.failScoped {
			return Result{}, ErrHardwareRejected{
				Operation: ReadElementStatus.String(),
				Status:    TaskStatusCheckCondition,
				Sense:     SenseData{Valid: true, Key: SenseIllegalRequest, ASC: 0x24},
			}
		}
	}
	var pages [][]byte
	total := 0
	if kind == KindAll || kind == KindTransport {
		if page, n := jukebox.pageFor(KindTransport, jukebox.transports, start, count, 0); n > 0 {
			pages, total = append(pages, page), total+n
		}
	}
	if kind == KindAll || kind == KindStorage {
		limit := jukebox.pageLimit
		if kind == KindAll {
			limit = 0
		}
		if page, n := jukebox.pageFor(KindStorage, jukebox.slots, start, count, limit); n > 0 {
			pages, total = append(pages, page), total+n
		}
	}
	if kind == KindAll || kind == KindImportExport {
		if page, n := jukebox.pageFor(KindImportExport, jukebox.ports, start, count, 0); n > 0 {
			pages, total = append(pages, page), total+n
		}
	}
	if kind == KindAll || kind == KindDrive {
		if page, n := jukebox.pageFor(KindDrive, jukebox.drives, start, count, 0); n > 0 {
			pages, total = append(pages, page), total+n
		}
	}
	report := statusReportBytes(start, uint16(total), pages...)
	transferred := copy(request.Buffer, report)
	return Result{Status: TaskStatusGood, Transferred: transferred}, nil
}

func (jukebox *fakeJukebox) pageFor(kind ElementKind, addresses []uint16, start uint16, count, limit int) ([]byte, int) {
	var elements []fakeElement
	for _, address := range addresses {
		if address < start {
			continue
		}
		if len(elements) >= count || (limit > 0 && len(elements) >= limit) {
			break
		}
		element := fakeElement{address: address}
		if jukebox.full[address] {
			element.flags |= jukebox.fullMask
		}
		if source, ok := jukebox.sources[address]; ok {
			element.sourceValid = true
			element.source = source
		}
		elements = append(elements, element)
	}
	if len(elements) == 0 {
		return nil, 0
	}
	reported := len(elements)
	if kind == KindStorage {
		for filler := 0; filler < jukebox.filler; filler++ {
			elements = append(elements, fakeElement{filler: true})
		}
	}
	return statusPageBytes(kind, 12, elements), reported
}

func (jukebox *fakeJukebox) moveMedium(cdb []byte) (Result, error) {
	move := recordedMove{
		transport:   binary.BigEndian.Uint16(cdb[2:4]),
		source:      binary.BigEndian.Uint16(cdb[4:6]),
		destination: binary.BigEndian.Uint16(cdb[6:8]),
	}
	jukebox.moves = append(jukebox.moves, move)
	jukebox.full[move.source] = false
	jukebox.full[move.destination] = true
	delete(jukebox.sources, move.source)
	for _, drive := range jukebox.drives {
		if drive == move.destination {
			jukebox.sources[drive] = move.source
		}
	}
	return Result{Status: TaskStatusGood}, nil
}

func sequence(first uint16, count int) []uint16 {
	addresses := make([]uint16, count)
	for index := range addresses {
		addresses[index] = first + uint16(index)
	}
	return addresses
}

func testChanger(jukebox *fakeJukebox) *Changer {
	return NewChanger(jukebox, DeviceInfo{Path: "/dev/fake"}, true, Config{})
}
