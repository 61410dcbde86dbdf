// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package cli

import "testing"

func loadCommandList() *CommandList {
	commandList := NewCommandList("mchangerctl", "media changer control")
	command := commandList.AddCommand("load", "load a disc from a slot into a drive")
	command.AddParameter("-s", "slot", "1-based slot index", "slot", true)
	command.AddParameter("-d", "drive", "1-based drive index", "drive", true)
	command.AddFlag("-n", "dry-run", "plan the moves without touching the device")
	command.AddFlag("-v", "verbose", "wait for the mounted volume and report it")
	return commandList
}

func TestParseParametersAndFlags(t *testing.T) {
	commandList := loadCommandList()
	err := commandList.Parse(
		[]string{"mchangerctl", "load", "--slot", "3", "-d", "1", "--dry-run"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	name, command := commandList.GetCurrentCommand()
	if name != "load" {
		t.Fatalf("current command is %q", name)
	}
	slot, err := command.GetParameter("slot")
	if err != nil || slot != "3" {
		t.Errorf("slot parameter %q, err %v", slot, err)
	}
	drive, err := command.GetParameter("drive")
	if err != nil || drive != "1" {
		t.Errorf("drive parameter %q, err %v", drive, err)
	}
	if !command.GetFlag("dry-run") {
		t.Error("dry-run flag lost")
	}
	if command.GetFlag("verbose") {
		t.Error("verbose flag set without being passed")
	}
}

func TestParseEqualsSyntax(t *testing.T) {
	commandList := loadCommandList()
	err := commandList.Parse([]string{"mchangerctl", "load", "--slot=7", "--drive=2"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	_, command := commandList.GetCurrentCommand()
	if slot, _ := command.GetParameter("slot"); slot != "7" {
		t.Errorf("slot parameter %q", slot)
	}
}

func TestParseMissingRequiredParameter(t *testing.T) {
	commandList := loadCommandList()
	err := commandList.Parse([]string{"mchangerctl", "load", "--slot", "3"})
	if err == nil {
		t.Fatal("expected a missing parameter error")
	}
}

func TestParseUnknownOption(t *testing.T) {
	commandList := loadCommandList()
	err := commandList.Parse([]string{"mchangerctl", "load", "--slot", "3", "--drive", "1", "--bogus"})
	if _, ok := err.(*ErrInvalidOption); !ok {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
}

func TestParseUnknownCommand(t *testing.T) {
	commandList := loadCommandList()
	err := commandList.Parse([]string{"mchangerctl", "explode"})
	if _, ok := err.(*ErrCommandNotFound); !ok {
		t.Fatalf("expected ErrCommandNotFound, got %v", err)
	}
}

func TestHelpRequested(t *testing.T) {
	commandList := loadCommandList()
	err := commandList.Parse([]string{"mchangerctl", "--help"})
	if _, ok := err.(*ErrHelpPageRequested); !ok {
		t.Fatalf("expected ErrHelpPageRequested, got %v", err)
	}
	err = commandList.Parse([]string{"mchangerctl", "load", "-h"})
	if _, ok := err.(*ErrHelpPageRequested); !ok {
		t.Fatalf("expected command help, got %v", err)
	}
}

func TestFlagRejectsValue(t *testing.T) {
	commandList := loadCommandList()
	err := commandList.Parse(
		[]string{"mchangerctl", "load", "--slot", "1", "--drive", "1", "--dry-run=yes"})
	if _, ok := err.(*ErrInvalidOption); !ok {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
}
