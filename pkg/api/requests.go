// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package api

import "encoding/json"

const (
	TypeEmptyResponse = "EMPTY"
	TypeStatus        = "STATUS"
	TypeListMap       = "LISTMAP"
	TypeSlotStatus    = "SLOTSTATUS"
	TypeDriveStatus   = "DRIVESTATUS"
	TypeLoad          = "LOAD"
	TypeUnload        = "UNLOAD"
	TypeEject         = "EJECT"
	TypeInsert        = "INSERT"
	TypeRetrieve      = "RETRIEVE"
	TypeMove          = "MOVE"
	TypeInquiry       = "INQUIRY"
	TypeTestUnitReady = "TESTUNITREADY"
	TypeInitStatus    = "INITSTATUS"
	TypeLogSense      = "LOGSENSE"
	TypeReportLuns    = "REPORTLUNS"
)

type Request struct {
	Type    string          `json:"type"`
	Command json.RawMessage `json:"command"`
}

type SlotStatusRequest struct {
	Slot int `json:"slot"`
}

type DriveStatusRequest struct {
	Drive int `json:"drive"`
}

// LoadRequest and the other move-family requests carry the optional
// transport override as a pointer: absent means "first discovered".
type LoadRequest struct {
	Slot      int     `json:"slot"`
	Drive     int     `json:"drive"`
	Transport *uint16 `json:"transport,omitempty"`
	DryRun    bool    `json:"dry_run"`
	Verbose   bool    `json:"verbose"`
}

type UnloadRequest struct {
	Slot      int     `json:"slot"`
	Drive     int     `json:"drive"`
	Transport *uint16 `json:"transport,omitempty"`
	DryRun    bool    `json:"dry_run"`
}

type EjectRequest struct {
	Slot      int     `json:"slot"`
	Drive     int     `json:"drive"`
	Transport *uint16 `json:"transport,omitempty"`
	DryRun    bool    `json:"dry_run"`
}

type InsertRequest struct {
	Slot      int     `json:"slot"`
	Transport *uint16 `json:"transport,omitempty"`
	DryRun    bool    `json:"dry_run"`
}

type RetrieveRequest struct {
	Slot      int     `json:"slot"`
	Transport *uint16 `json:"transport,omitempty"`
	DryRun    bool    `json:"dry_run"`
}

// MoveRequest addresses elements directly, bypassing orchestration.
type MoveRequest struct {
	Transport   uint16 `json:"transport"`
	Source      uint16 `json:"source"`
	Destination uint16 `json:"destination"`
	DryRun      bool   `json:"dry_run"`
}

type LogSenseRequest struct {
	Page byte `json:"page"`
}

func ParseRequest(data []byte) (*Request, error) {
	request := &Request{}
	err := json.Unmarshal(data, request)
	if err != nil {
		return nil, err
	}
	return request, nil
}
