// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package smc

import (
	"fmt"

	"mchanger/pkg/logger"
)

const (
	// maxElementCount asks for every element the device has.
	maxElementCount uint16 = 0xffff

	// allKindsAllocation is the allocation length of an unscoped
	// element status read.
	allKindsAllocation uint32 = 0xffff

	// storagePageLimit caps how many storage elements one scoped
	// read may request. Larger requests make some units return
	// truncated or corrupt pages.
	storagePageLimit = 40

	storagePageAllocation uint32 = 4096
)

// fetchTopology discovers the element layout from scratch. It seeds
// from one unscoped read, then, when the element address assignment
// page promises storage elements, rebuilds the storage list with
// scoped paginated reads and repairs a trailing shortfall.
func (changer *Changer) fetchTopology() (Topology, error) {
	report, err := changer.readElementStatusOnce(
		KindAll, 0, maxElementCount, allKindsAllocation)
	if err != nil {
		return Topology{}, err
	}
	accumulator := newTopologyAccumulator()
	accumulator.addReport(report)
	assignment, err := changer.readAssignment()
	if err != nil {
		logger.GetLogger().Debug(fmt.Sprintf(
			"element address assignment unavailable, keeping seed topology: %v", err))
	} else if assignment.StorageCount > 0 {
		accumulator.resetStorage()
		if err = changer.paginateStorage(accumulator, assignment); err != nil {
			return Topology{}, err
		}
		accumulator.repairTrailingStorage(assignment)
	}
	topology := accumulator.result
	if topology.Empty() {
		return Topology{}, ErrNoElementsReported{}
	}
	return topology, nil
}

func (changer *Changer) paginateStorage(accumulator *topologyAccumulator, assignment AddressAssignment) error {
	start := assignment.FirstStorage
	for {
		remaining := int(assignment.StorageCount) - len(accumulator.result.Slots)
		if remaining <= 0 {
			return nil
		}
		count := remaining
		if count > storagePageLimit {
			count = storagePageLimit
		}
		report, err := changer.readElementStatusOnce(
			KindStorage, start, uint16(count), storagePageAllocation)
		if err != nil {
			return err
		}
		added := accumulator.addReport(report)
		if added == 0 {
			logger.GetLogger().Debug(fmt.Sprintf(
				"storage pagination stalled at address 0x%04x with %d of %d elements",
				start, len(accumulator.result.Slots), assignment.StorageCount))
			return nil
		}
		start += uint16(added)
	}
}

func (changer *Changer) readAssignment() (AddressAssignment, error) {
	buffer := make([]byte, 256)
	_, err := changer.transport.Execute(Request{
		CDB:       EncodeModeSenseElementPage(uint16(len(buffer))),
		Direction: DataFromDevice,
		Buffer:    buffer,
		Timeout:   changer.conf.CommandTimeout,
	})
	if err != nil {
		return AddressAssignment{}, err
	}
	return DecodeElementAddressAssignment(buffer)
}

func (changer *Changer) readElementStatusOnce(kind ElementKind, start, count uint16, allocation uint32) (StatusReport, error) {
	buffer := make([]byte, allocation)
	_, err := changer.transport.Execute(Request{
		CDB:       EncodeReadElementStatus(kind, start, count, allocation),
		Direction: DataFromDevice,
		Buffer:    buffer,
		Timeout:   changer.conf.StatusTimeout,
	})
	if err != nil {
		return StatusReport{}, err
	}
	return DecodeElementStatus(buffer)
}

// resolveStatusFor snapshots one drive and one storage element with a
// single unscoped read, so both reflect the same device state.
func (changer *Changer) resolveStatusFor(driveAddress, slotAddress uint16) (ElementStatus, ElementStatus, error) {
	report, err := changer.readElementStatusOnce(
		KindAll, 0, maxElementCount, allKindsAllocation)
	if err != nil {
		return ElementStatus{}, ElementStatus{}, err
	}
	mask := changer.fullMask(report.Pages)
	var drive, slot ElementStatus
	foundDrive, foundSlot := false, false
	for _, page := range report.Pages {
		for _, descriptor := range page.Descriptors {
			if descriptor.ZeroFiller {
				continue
			}
			switch {
			case descriptor.Kind == KindDrive && descriptor.Address == driveAddress:
				drive = descriptor.Status(mask)
				foundDrive = true
			case descriptor.Kind == KindStorage && descriptor.Address == slotAddress:
				slot = descriptor.Status(mask)
				foundSlot = true
			}
		}
	}
	if !foundDrive {
		return ElementStatus{}, ElementStatus{}, ErrNotFound{
			What: fmt.Sprintf("drive element 0x%04x", driveAddress)}
	}
	if !foundSlot {
		return ElementStatus{}, ElementStatus{}, ErrNotFound{
			What: fmt.Sprintf("storage element 0x%04x", slotAddress)}
	}
	return drive, slot, nil
}

func (changer *Changer) fullMask(pages []ElementStatusPage) byte {
	if changer.conf.FullBit != 0 {
		return changer.conf.FullBit
	}
	return ChooseFullMask(pages)
}

type topologyAccumulator struct {
	result Topology
	seen   map[ElementKind]map[uint16]struct{}
}

func newTopologyAccumulator() *topologyAccumulator {
	return &topologyAccumulator{seen: map[ElementKind]map[uint16]struct{}{}}
}

// addReport folds every non-filler descriptor into the topology and
// returns how many addresses were new.
func (accumulator *topologyAccumulator) addReport(report StatusReport) int {
	added := 0
	for _, page := range report.Pages {
		for _, descriptor := range page.Descriptors {
			if descriptor.ZeroFiller {
				continue
			}
			if accumulator.add(descriptor.Kind, descriptor.Address) {
				added++
			}
		}
	}
	return added
}

func (accumulator *topologyAccumulator) add(kind ElementKind, address uint16) bool {
	addresses, ok := accumulator.seen[kind]
	if !ok {
		addresses = map[uint16]struct{}{}
		accumulator.seen[kind] = addresses
	}
	if _, duplicate := addresses[address]; duplicate {
		return false
	}
	addresses[address] = struct{}{}
	switch kind {
	case KindTransport:
		accumulator.result.Transports = append(accumulator.result.Transports, address)
	case KindStorage:
		accumulator.result.Slots = append(accumulator.result.Slots, address)
	case KindImportExport:
		accumulator.result.ImportExports = append(accumulator.result.ImportExports, address)
	case KindDrive:
		accumulator.result.Drives = append(accumulator.result.Drives, address)
	default:
		delete(addresses, address)
		return false
	}
	return true
}

func (accumulator *topologyAccumulator) resetStorage() {
	accumulator.result.Slots = nil
	delete(accumulator.seen, KindStorage)
}

// repairTrailingStorage synthesizes addresses for elements the device
// promised in the assignment page but never reported, a known quirk
// on some units. Only the trailing range after the last discovered
// address is synthesized; interior gaps are left alone.
func (accumulator *topologyAccumulator) repairTrailingStorage(assignment AddressAssignment) {
	slots := accumulator.result.Slots
	if len(slots) == 0 || len(slots) >= int(assignment.StorageCount) {
		return
	}
	missing := int(assignment.StorageCount) - len(slots)
	logger.GetLogger().Warning(fmt.Sprintf(
		"device reported %d of %d storage elements, synthesizing %d trailing addresses",
		len(slots), assignment.StorageCount, missing))
	next := slots[len(slots)-1] + 1
	for len(accumulator.result.Slots) < int(assignment.StorageCount) {
		accumulator.add(KindStorage, next)
		next++
	}
}
