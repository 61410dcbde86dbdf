// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Response struct {
	Type   string
	Error  string          `json:"error"`
	Result json.RawMessage `json:"result"`
}

type StatusResponse struct {
	SessionId string `json:"session_id"`
	Vendor    string `json:"vendor"`
	Product   string `json:"product"`
	Revision  string `json:"revision"`
	Path      string `json:"path"`
	Exclusive bool   `json:"exclusive"`
}

func (response StatusResponse) ToCmdlineOutput() string {
	access := "exclusive"
	if !response.Exclusive {
		access = "shared"
	}
	return fmt.Sprintf(
		"Session %s\n  Device: %s %s (rev %s)\n  Path: %s\n  Access: %s",
		response.SessionId, response.Vendor, response.Product,
		response.Revision, response.Path, access)
}

type ElementMapResponse struct {
	Transports    []uint16 `json:"transports"`
	Slots         []uint16 `json:"slots"`
	Drives        []uint16 `json:"drives"`
	ImportExports []uint16 `json:"import_exports"`
	Note          string   `json:"note,omitempty"`
}

func (response ElementMapResponse) ToCmdlineOutput() string {
	result := "Element map:\n"
	result += formatAddressGroup("Transports", response.Transports)
	result += formatAddressGroup("Slots", response.Slots)
	result += formatAddressGroup("Drives", response.Drives)
	result += formatAddressGroup("Import/export", response.ImportExports)
	if response.Note != "" {
		result += fmt.Sprintf("  Note: %s\n", response.Note)
	}
	return result
}

func formatAddressGroup(name string, addresses []uint16) string {
	if len(addresses) == 0 {
		return fmt.Sprintf("  %s: none\n", name)
	}
	formatted := make([]string, len(addresses))
	for index, address := range addresses {
		formatted[index] = fmt.Sprintf("0x%04x", address)
	}
	return fmt.Sprintf("  %s (%d): %s\n", name, len(addresses), strings.Join(formatted, " "))
}

type ElementStatusResponse struct {
	Address       uint16 `json:"address"`
	Full          bool   `json:"full"`
	Exception     bool   `json:"exception"`
	SourceValid   bool   `json:"source_valid"`
	SourceAddress uint16 `json:"source_address"`
}

func (response ElementStatusResponse) ToCmdlineOutput() string {
	state := "empty"
	if response.Full {
		state = "full"
	}
	result := fmt.Sprintf("Element 0x%04x: %s", response.Address, state)
	if response.SourceValid {
		result += fmt.Sprintf(", from 0x%04x", response.SourceAddress)
	}
	if response.Exception {
		result += ", EXCEPTION"
	}
	return result
}

type MoveRepresentation struct {
	Transport   uint16 `json:"transport"`
	Source      uint16 `json:"source"`
	Destination uint16 `json:"destination"`
	Purpose     string `json:"purpose"`
}

type MountRepresentation struct {
	Name string `json:"name"`
	Size string `json:"size"`
}

type MoveResponse struct {
	Moves    []MoveRepresentation `json:"moves"`
	Executed bool                 `json:"executed"`
	Mounted  *MountRepresentation `json:"mounted,omitempty"`
}

func (response MoveResponse) ToCmdlineOutput() string {
	if len(response.Moves) == 0 {
		return "Nothing to move"
	}
	verb := "Planned"
	if response.Executed {
		verb = "Performed"
	}
	lines := make([]string, len(response.Moves))
	for index, move := range response.Moves {
		lines[index] = fmt.Sprintf(
			"\t* %s: 0x%04x -> 0x%04x via 0x%04x",
			move.Purpose, move.Source, move.Destination, move.Transport)
	}
	result := fmt.Sprintf("%s %d move(s):\n%s", verb, len(response.Moves), strings.Join(lines, "\n"))
	if response.Mounted != nil {
		result += fmt.Sprintf("\nMounted %s (%s)", response.Mounted.Name, response.Mounted.Size)
	}
	return result
}

type InquiryResponse struct {
	Vendor   string `json:"vendor"`
	Product  string `json:"product"`
	Revision string `json:"revision"`
}

func (response InquiryResponse) ToCmdlineOutput() string {
	return fmt.Sprintf(
		"Vendor: %s\nProduct: %s\nRevision: %s",
		response.Vendor, response.Product, response.Revision)
}

type LogSenseResponse struct {
	Page   byte   `json:"page"`
	Length int    `json:"length"`
	Data   string `json:"data"`
}

func (response LogSenseResponse) ToCmdlineOutput() string {
	return fmt.Sprintf(
		"Log page 0x%02x, %d bytes:\n%s", response.Page, response.Length, response.Data)
}

type ReportLunsResponse struct {
	Luns []uint64 `json:"luns"`
}

func (response ReportLunsResponse) ToCmdlineOutput() string {
	lines := make([]string, len(response.Luns))
	for index, lun := range response.Luns {
		lines[index] = fmt.Sprintf("\t* 0x%016x", lun)
	}
	return fmt.Sprintf("Reported %d lun(s):\n%s", len(response.Luns), strings.Join(lines, "\n"))
}
