// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package smc

import (
	"fmt"
	"time"

	uuid "github.com/satori/go.uuid"

	"mchanger/pkg/logger"
)

// Config carries the per-session knobs. The zero value means
// "defaults everywhere"; withDefaults fills the gaps.
type Config struct {
	// SkipReadyCheck suppresses the TEST UNIT READY probe after the
	// session opens.
	SkipReadyCheck bool

	// FullBit forces the descriptor full-flag position
	// (FullBitPrimary or FullBitAlternate). Zero probes per read.
	FullBit byte

	CommandTimeout time.Duration
	StatusTimeout  time.Duration
	MoveTimeout    time.Duration
}

func (conf Config) withDefaults() Config {
	if conf.CommandTimeout == 0 {
		conf.CommandTimeout = 10 * time.Second
	}
	if conf.StatusTimeout == 0 {
		conf.StatusTimeout = 30 * time.Second
	}
	if conf.MoveTimeout == 0 {
		conf.MoveTimeout = 60 * time.Second
	}
	return conf
}

// Move is one MOVE MEDIUM step of an orchestrated operation.
type Move struct {
	Transport   uint16
	Source      uint16
	Destination uint16
	Purpose     string
}

func (move Move) String() string {
	return fmt.Sprintf(
		"%s: 0x%04x -> 0x%04x via transport 0x%04x",
		move.Purpose, move.Source, move.Destination, move.Transport)
}

// MoveOptions modify one orchestrated operation. The explicit
// transport address overrides the first discovered one; DryRun
// returns the plan without issuing any MOVE MEDIUM.
type MoveOptions struct {
	TransportAddress  uint16
	ExplicitTransport bool
	DryRun            bool
}

// Changer is one open session against one medium changer. Methods
// are not safe for concurrent use; the API layer serializes.
type Changer struct {
	ID        uuid.UUID
	Info      DeviceInfo
	Exclusive bool

	transport Transport
	conf      Config
	closed    bool
}

func NewChanger(transport Transport, info DeviceInfo, exclusive bool, conf Config) *Changer {
	return &Changer{
		ID:        uuid.NewV4(),
		Info:      info,
		Exclusive: exclusive,
		transport: transport,
		conf:      conf.withDefaults(),
	}
}

func (changer *Changer) Close() error {
	if changer.closed {
		return nil
	}
	changer.closed = true
	return changer.transport.Close()
}

func (changer *Changer) TestUnitReady() error {
	_, err := changer.transport.Execute(Request{
		CDB:     EncodeTestUnitReady(),
		Timeout: changer.conf.CommandTimeout,
	})
	return err
}

func (changer *Changer) Inquiry() (DeviceIdentity, error) {
	buffer := make([]byte, StandardInquiryLength)
	_, err := changer.transport.Execute(Request{
		CDB:       EncodeInquiry(StandardInquiryLength),
		Direction: DataFromDevice,
		Buffer:    buffer,
		Timeout:   changer.conf.CommandTimeout,
	})
	if err != nil {
		return DeviceIdentity{}, err
	}
	return DecodeInquiry(buffer)
}

// InquiryVPD fetches one vital product data page and returns its raw
// payload.
func (changer *Changer) InquiryVPD(page byte) ([]byte, error) {
	buffer := make([]byte, 256)
	_, err := changer.transport.Execute(Request{
		CDB:       EncodeInquiryVPD(page, uint16(len(buffer))),
		Direction: DataFromDevice,
		Buffer:    buffer,
		Timeout:   changer.conf.CommandTimeout,
	})
	if err != nil {
		return nil, err
	}
	returnedPage, payload, err := DecodeVPDPage(buffer)
	if err != nil {
		return nil, err
	}
	if returnedPage != page {
		return nil, ErrMalformedResponse{Reason: fmt.Sprintf(
			"requested vpd page 0x%02x, device returned 0x%02x", page, returnedPage)}
	}
	return payload, nil
}

// LogSense fetches one log page and returns its raw parameter bytes.
func (changer *Changer) LogSense(page byte) ([]byte, error) {
	buffer := make([]byte, 4096)
	_, err := changer.transport.Execute(Request{
		CDB:       EncodeLogSense(page, uint16(len(buffer))),
		Direction: DataFromDevice,
		Buffer:    buffer,
		Timeout:   changer.conf.CommandTimeout,
	})
	if err != nil {
		return nil, err
	}
	_, payload, err := DecodeLogPage(buffer)
	return payload, err
}

func (changer *Changer) ReportLuns() ([]uint64, error) {
	buffer := make([]byte, 256)
	_, err := changer.transport.Execute(Request{
		CDB:       EncodeReportLuns(uint32(len(buffer))),
		Direction: DataFromDevice,
		Buffer:    buffer,
		Timeout:   changer.conf.CommandTimeout,
	})
	if err != nil {
		return nil, err
	}
	return DecodeReportLuns(buffer)
}

// InitializeElementStatus asks the unit to rescan all elements. Slow
// on carousel units, hence the move timeout.
func (changer *Changer) InitializeElementStatus() error {
	_, err := changer.transport.Execute(Request{
		CDB:     EncodeInitializeElementStatus(),
		Timeout: changer.conf.MoveTimeout,
	})
	return err
}

// ListTopology discovers the current element layout. Nothing is
// cached between calls.
func (changer *Changer) ListTopology() (Topology, error) {
	return changer.fetchTopology()
}

// Assignment returns the element address assignment page.
func (changer *Changer) Assignment() (AddressAssignment, error) {
	return changer.readAssignment()
}

// ReadElementStatusRaw runs one READ ELEMENT STATUS verbatim. A
// failed scoped read is retried once unscoped, since some units
// reject scoping they nominally advertise.
func (changer *Changer) ReadElementStatusRaw(kind ElementKind, start, count uint16, allocation uint32) (StatusReport, error) {
	report, err := changer.readElementStatusOnce(kind, start, count, allocation)
	if err == nil || kind == KindAll {
		return report, err
	}
	logger.GetLogger().Warnf(
		"scoped element status read (%s) failed, retrying unscoped: %v", kind, err)
	return changer.readElementStatusOnce(KindAll, start, count, allocation)
}

// SlotStatus reports one storage element by 1-based slot index.
func (changer *Changer) SlotStatus(slot int) (ElementStatus, error) {
	topology, err := changer.fetchTopology()
	if err != nil {
		return ElementStatus{}, err
	}
	address, err := pickElement(topology.Slots, slot, "slot")
	if err != nil {
		return ElementStatus{}, err
	}
	return changer.elementStatus(KindStorage, address)
}

// DriveStatus reports one drive element by 1-based drive index.
func (changer *Changer) DriveStatus(drive int) (ElementStatus, error) {
	topology, err := changer.fetchTopology()
	if err != nil {
		return ElementStatus{}, err
	}
	address, err := pickElement(topology.Drives, drive, "drive")
	if err != nil {
		return ElementStatus{}, err
	}
	return changer.elementStatus(KindDrive, address)
}

func (changer *Changer) elementStatus(kind ElementKind, address uint16) (ElementStatus, error) {
	report, err := changer.readElementStatusOnce(
		KindAll, 0, maxElementCount, allKindsAllocation)
	if err != nil {
		return ElementStatus{}, err
	}
	mask := changer.fullMask(report.Pages)
	for _, page := range report.Pages {
		for _, descriptor := range page.Descriptors {
			if descriptor.ZeroFiller {
				continue
			}
			if descriptor.Kind == kind && descriptor.Address == address {
				return descriptor.Status(mask), nil
			}
		}
	}
	return ElementStatus{}, ErrNotFound{
		What: fmt.Sprintf("%s element 0x%04x", kind, address)}
}

// MoveMedium issues a single MOVE MEDIUM with explicit element
// addresses, bypassing all orchestration.
func (changer *Changer) MoveMedium(transport, source, destination uint16) error {
	_, err := changer.transport.Execute(Request{
		CDB:     EncodeMoveMedium(transport, source, destination),
		Timeout: changer.conf.MoveTimeout,
	})
	return err
}

// Load puts the medium from a slot into a drive. Loading a slot
// whose medium is already in the drive is a no-op. A drive holding a
// different medium is unloaded to its recorded source slot first.
func (changer *Changer) Load(slot, drive int, options MoveOptions) ([]Move, error) {
	plan := func(site moveSite) ([]Move, error) {
		if !site.slot.Full && site.drive.Full && site.drive.SourceValid &&
			site.drive.SourceAddress == site.slotAddress {
			logger.GetLogger().Infof(
				"slot %d medium is already in drive %d, nothing to move", slot, drive)
			return nil, nil
		}
		if !site.slot.Full {
			return nil, ErrEmptySource{Slot: slot}
		}
		var moves []Move
		if site.drive.Full {
			if !site.drive.SourceValid {
				return nil, ErrUnknownSource{Drive: drive}
			}
			moves = append(moves, Move{
				Transport:   site.transport,
				Source:      site.driveAddress,
				Destination: site.drive.SourceAddress,
				Purpose:     "unload",
			})
		}
		return append(moves, Move{
			Transport:   site.transport,
			Source:      site.slotAddress,
			Destination: site.driveAddress,
			Purpose:     "load",
		}), nil
	}
	return changer.orchestrate(slot, drive, options, plan)
}

// Unload moves whatever the drive holds back into the slot,
// unconditionally. The device rejects impossible moves itself.
func (changer *Changer) Unload(slot, drive int, options MoveOptions) ([]Move, error) {
	plan := func(site moveSite) ([]Move, error) {
		return []Move{{
			Transport:   site.transport,
			Source:      site.driveAddress,
			Destination: site.slotAddress,
			Purpose:     "unload",
		}}, nil
	}
	return changer.orchestrate(slot, drive, options, plan)
}

// Eject expels the medium belonging to a slot through the
// import/export port, fetching it from the drive first when it is
// there. A drive medium with no valid source is assumed to belong to
// an empty target slot.
func (changer *Changer) Eject(slot, drive int, options MoveOptions) ([]Move, error) {
	plan := func(site moveSite) ([]Move, error) {
		if site.importExport == nil {
			return nil, ErrNotFound{What: "import/export element"}
		}
		inDrive := !site.slot.Full && site.drive.Full &&
			(!site.drive.SourceValid || site.drive.SourceAddress == site.slotAddress)
		if !site.slot.Full && !inDrive {
			return nil, ErrEmptySource{Slot: slot}
		}
		var moves []Move
		if inDrive {
			moves = append(moves, Move{
				Transport:   site.transport,
				Source:      site.driveAddress,
				Destination: site.slotAddress,
				Purpose:     "unload",
			})
		}
		return append(moves, Move{
			Transport:   site.transport,
			Source:      site.slotAddress,
			Destination: *site.importExport,
			Purpose:     "eject",
		}), nil
	}
	return changer.orchestrate(slot, drive, options, plan)
}

// Insert moves a medium from the import/export port into a slot.
func (changer *Changer) Insert(slot int, options MoveOptions) ([]Move, error) {
	return changer.portMove(slot, options, true)
}

// Retrieve moves a medium from a slot to the import/export port.
func (changer *Changer) Retrieve(slot int, options MoveOptions) ([]Move, error) {
	return changer.portMove(slot, options, false)
}

// moveSite is the fresh device state an orchestration plan works
// from: resolved addresses plus the paired drive and slot snapshots.
type moveSite struct {
	transport    uint16
	slotAddress  uint16
	driveAddress uint16
	importExport *uint16
	slot         ElementStatus
	drive        ElementStatus
}

func (changer *Changer) orchestrate(slot, drive int, options MoveOptions, plan func(moveSite) ([]Move, error)) ([]Move, error) {
	topology, err := changer.fetchTopology()
	if err != nil {
		return nil, err
	}
	site := moveSite{}
	if site.slotAddress, err = pickElement(topology.Slots, slot, "slot"); err != nil {
		return nil, err
	}
	if site.driveAddress, err = pickElement(topology.Drives, drive, "drive"); err != nil {
		return nil, err
	}
	if site.transport, err = resolveTransport(topology, options); err != nil {
		return nil, err
	}
	if len(topology.ImportExports) > 0 {
		address := topology.ImportExports[0]
		site.importExport = &address
	}
	if site.drive, site.slot, err = changer.resolveStatusFor(site.driveAddress, site.slotAddress); err != nil {
		return nil, err
	}
	moves, err := plan(site)
	if err != nil {
		return nil, err
	}
	return moves, changer.executeMoves(moves, options.DryRun)
}

func (changer *Changer) portMove(slot int, options MoveOptions, inbound bool) ([]Move, error) {
	topology, err := changer.fetchTopology()
	if err != nil {
		return nil, err
	}
	slotAddress, err := pickElement(topology.Slots, slot, "slot")
	if err != nil {
		return nil, err
	}
	transport, err := resolveTransport(topology, options)
	if err != nil {
		return nil, err
	}
	if len(topology.ImportExports) == 0 {
		return nil, ErrNotFound{What: "import/export element"}
	}
	port := topology.ImportExports[0]
	move := Move{Transport: transport, Source: port, Destination: slotAddress, Purpose: "insert"}
	if !inbound {
		move = Move{Transport: transport, Source: slotAddress, Destination: port, Purpose: "retrieve"}
	}
	moves := []Move{move}
	return moves, changer.executeMoves(moves, options.DryRun)
}

// executeMoves runs the plan in order and aborts on the first
// failure. There is no rollback; the device state after a partial
// plan is whatever the completed steps left behind.
func (changer *Changer) executeMoves(moves []Move, dryRun bool) error {
	for index, move := range moves {
		if dryRun {
			logger.GetLogger().Infof("dry run, skipping %s", move)
			continue
		}
		logger.GetLogger().Infof("moving medium, %s", move)
		if err := changer.MoveMedium(move.Transport, move.Source, move.Destination); err != nil {
			return fmt.Errorf("move %d of %d failed: %w", index+1, len(moves), err)
		}
	}
	return nil
}

func resolveTransport(topology Topology, options MoveOptions) (uint16, error) {
	if options.ExplicitTransport {
		return options.TransportAddress, nil
	}
	if len(topology.Transports) == 0 {
		return 0, ErrNoTransport{}
	}
	return topology.Transports[0], nil
}

func pickElement(addresses []uint16, index int, what string) (uint16, error) {
	if index < 1 {
		return 0, ErrInvalidArgument{
			Reason: fmt.Sprintf("%s index %d, indices start at 1", what, index)}
	}
	if index > len(addresses) {
		return 0, ErrOutOfRange{What: what, Index: index, Count: len(addresses)}
	}
	return addresses[index-1], nil
}
