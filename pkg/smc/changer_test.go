// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package smc

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// standardJukebox is a one-drive, one-port unit with media in the
// first two slots.
func standardJukebox() *fakeJukebox {
	jukebox := newFakeJukebox()
	jukebox.transports = []uint16{0x0001}
	jukebox.slots = sequence(0x2000, 10)
	jukebox.drives = []uint16{0x00a0}
	jukebox.ports = []uint16{0x00c0}
	jukebox.full[0x2000] = true
	jukebox.full[0x2001] = true
	return jukebox
}

func TestLoadMovesSlotToDrive(t *testing.T) {
	jukebox := standardJukebox()
	moves, err := testChanger(jukebox).Load(1, 1, MoveOptions{})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	expected := []recordedMove{{transport: 0x0001, source: 0x2000, destination: 0x00a0}}
	if diff := cmp.Diff(expected, jukebox.moves, cmp.AllowUnexported(recordedMove{})); diff != "" {
		t.Errorf("moves mismatch (-want +got):\n%s", diff)
	}
	if len(moves) != 1 || moves[0].Purpose != "load" {
		t.Errorf("plan was %v", moves)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	jukebox := standardJukebox()
	changer := testChanger(jukebox)
	if _, err := changer.Load(1, 1, MoveOptions{}); err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	moves, err := changer.Load(1, 1, MoveOptions{})
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if len(moves) != 0 {
		t.Errorf("second load planned %v, expected nothing", moves)
	}
	if len(jukebox.moves) != 1 {
		t.Errorf("device saw %d moves, expected 1", len(jukebox.moves))
	}
}

func TestLoadSwapsOccupiedDrive(t *testing.T) {
	jukebox := standardJukebox()
	changer := testChanger(jukebox)
	if _, err := changer.Load(1, 1, MoveOptions{}); err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	moves, err := changer.Load(2, 1, MoveOptions{})
	if err != nil {
		t.Fatalf("swap load failed: %v", err)
	}
	if len(moves) != 2 || moves[0].Purpose != "unload" || moves[1].Purpose != "load" {
		t.Fatalf("swap plan was %v", moves)
	}
	expected := []recordedMove{
		{transport: 0x0001, source: 0x2000, destination: 0x00a0},
		{transport: 0x0001, source: 0x00a0, destination: 0x2000},
		{transport: 0x0001, source: 0x2001, destination: 0x00a0},
	}
	if diff := cmp.Diff(expected, jukebox.moves, cmp.AllowUnexported(recordedMove{})); diff != "" {
		t.Errorf("moves mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEmptySlot(t *testing.T) {
	jukebox := standardJukebox()
	_, err := testChanger(jukebox).Load(5, 1, MoveOptions{})
	if _, ok := err.(ErrEmptySource); !ok {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}
	if len(jukebox.moves) != 0 {
		t.Errorf("device saw moves for an empty slot: %v", jukebox.moves)
	}
}

func TestLoadRefusesDriveWithUnknownSource(t *testing.T) {
	jukebox := standardJukebox()
	jukebox.full[0x00a0] = true
	_, err := testChanger(jukebox).Load(2, 1, MoveOptions{})
	if _, ok := err.(ErrUnknownSource); !ok {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
}

func TestLoadDryRunTouchesNothing(t *testing.T) {
	jukebox := standardJukebox()
	moves, err := testChanger(jukebox).Load(1, 1, MoveOptions{DryRun: true})
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if len(moves) != 1 {
		t.Errorf("dry run planned %v", moves)
	}
	if len(jukebox.moves) != 0 {
		t.Errorf("dry run reached the device: %v", jukebox.moves)
	}
}

func TestUnloadIsUnconditional(t *testing.T) {
	jukebox := standardJukebox()
	moves, err := testChanger(jukebox).Unload(3, 1, MoveOptions{})
	if err != nil {
		t.Fatalf("unload failed: %v", err)
	}
	if len(moves) != 1 || moves[0].Source != 0x00a0 || moves[0].Destination != 0x2002 {
		t.Errorf("unload plan was %v", moves)
	}
}

func TestEjectFromDrive(t *testing.T) {
	jukebox := standardJukebox()
	changer := testChanger(jukebox)
	if _, err := changer.Load(1, 1, MoveOptions{}); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	jukebox.moves = nil
	moves, err := changer.Eject(1, 1, MoveOptions{})
	if err != nil {
		t.Fatalf("eject failed: %v", err)
	}
	if len(moves) != 2 {
		t.Fatalf("eject from drive planned %v, expected 2 moves", moves)
	}
	expected := []recordedMove{
		{transport: 0x0001, source: 0x00a0, destination: 0x2000},
		{transport: 0x0001, source: 0x2000, destination: 0x00c0},
	}
	if diff := cmp.Diff(expected, jukebox.moves, cmp.AllowUnexported(recordedMove{})); diff != "" {
		t.Errorf("moves mismatch (-want +got):\n%s", diff)
	}
}

func TestEjectFromSlot(t *testing.T) {
	jukebox := standardJukebox()
	moves, err := testChanger(jukebox).Eject(2, 1, MoveOptions{})
	if err != nil {
		t.Fatalf("eject failed: %v", err)
	}
	if len(moves) != 1 || moves[0].Destination != 0x00c0 {
		t.Errorf("eject from slot planned %v, expected one move to the port", moves)
	}
}

func TestEjectAssumesUnattributedDriveMedium(t *testing.T) {
	jukebox := standardJukebox()
	jukebox.full[0x00a0] = true
	moves, err := testChanger(jukebox).Eject(5, 1, MoveOptions{})
	if err != nil {
		t.Fatalf("eject failed: %v", err)
	}
	if len(moves) != 2 || moves[0].Source != 0x00a0 {
		t.Errorf("eject planned %v, expected drive unload first", moves)
	}
}

func TestInsertAndRetrieve(t *testing.T) {
	jukebox := standardJukebox()
	changer := testChanger(jukebox)
	moves, err := changer.Insert(5, MoveOptions{})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if len(moves) != 1 || moves[0].Source != 0x00c0 || moves[0].Destination != 0x2004 {
		t.Errorf("insert planned %v", moves)
	}
	moves, err = changer.Retrieve(2, MoveOptions{})
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if len(moves) != 1 || moves[0].Source != 0x2001 || moves[0].Destination != 0x00c0 {
		t.Errorf("retrieve planned %v", moves)
	}
}

func TestExplicitTransportOverride(t *testing.T) {
	jukebox := standardJukebox()
	options := MoveOptions{TransportAddress: 0x0002, ExplicitTransport: true}
	_, err := testChanger(jukebox).Load(1, 1, options)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if jukebox.moves[0].transport != 0x0002 {
		t.Errorf("transport 0x%04x, expected override 0x0002", jukebox.moves[0].transport)
	}
}

func TestNoTransportElement(t *testing.T) {
	jukebox := standardJukebox()
	jukebox.transports = nil
	_, err := testChanger(jukebox).Load(1, 1, MoveOptions{})
	if _, ok := err.(ErrNoTransport); !ok {
		t.Fatalf("expected ErrNoTransport, got %v", err)
	}
}

func TestIndexValidation(t *testing.T) {
	names := []string{"zero slot", "negative drive", "slot past end", "drive past end"}
	slots := []int{0, 1, 11, 1}
	drives := []int{1, -1, 1, 2}
	for index, name := range names {
		jukebox := standardJukebox()
		_, err := testChanger(jukebox).Load(slots[index], drives[index], MoveOptions{})
		if err == nil {
			t.Errorf("%s: expected an error", name)
			continue
		}
		switch err.(type) {
		case ErrInvalidArgument, ErrOutOfRange:
		default:
			t.Errorf("%s: unexpected error type %T: %v", name, err, err)
		}
	}
}

func TestInquiryDecodesIdentity(t *testing.T) {
	identity, err := testChanger(standardJukebox()).Inquiry()
	if err != nil {
		t.Fatalf("inquiry failed: %v", err)
	}
	if identity.Vendor != "SONY" || identity.Product != "VAIOChanger1" {
		t.Errorf("identity decoded as %+v", identity)
	}
	if identity.PeripheralType != PeripheralTypeChanger {
		t.Errorf("peripheral type 0x%02x", identity.PeripheralType)
	}
}

func TestSlotAndDriveStatus(t *testing.T) {
	jukebox := standardJukebox()
	changer := testChanger(jukebox)
	status, err := changer.SlotStatus(1)
	if err != nil {
		t.Fatalf("slot status failed: %v", err)
	}
	if !status.Full || status.Address != 0x2000 {
		t.Errorf("slot 1 status %+v", status)
	}
	status, err = changer.DriveStatus(1)
	if err != nil {
		t.Fatalf("drive status failed: %v", err)
	}
	if status.Full || status.Address != 0x00a0 {
		t.Errorf("drive 1 status %+v", status)
	}
}
