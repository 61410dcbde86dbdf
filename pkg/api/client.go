// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package api

import (
	"bufio"
	"encoding/json"
	"net"
)

func unmarshal[T any](response *Response) (*T, error) {
	result := new(T)
	err := json.Unmarshal(response.Result, result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

type ClientRequester struct {
	socketPath string
}

func NewApiRequester(socketPath string) ClientRequester {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	return ClientRequester{
		socketPath: socketPath,
	}
}

func (api ClientRequester) performUnixSocketRequest(data []byte) ([]byte, error) {
	connection, err := net.Dial("unix", api.socketPath)
	if err != nil {
		return nil, err
	}
	_, err = connection.Write(data)
	if err != nil {
		return nil, err
	}
	_, err = connection.Write([]byte("\n"))
	if err != nil {
		return nil, err
	}
	reader := bufio.NewReader(connection)
	delimiter := byte('\n')
	responseBytes, err := reader.ReadBytes(delimiter)
	return responseBytes, err
}

func (api ClientRequester) request(request Request) (*Response, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	responseBytes, err := api.performUnixSocketRequest(data)
	if err != nil {
		return nil, err
	}
	response := &Response{}
	err = json.Unmarshal(responseBytes, response)
	if err != nil {
		return nil, err
	}
	if response.Error != "" {
		return nil, &ErrApiRequestFailed{errorMessage: response.Error}
	}
	return response, nil
}

func specificRequest[ReqType, RespType any](
	api ClientRequester,
	command ReqType,
	typeName string,
) (*RespType, error) {
	jsonCommand, err := json.Marshal(command)
	if err != nil {
		return nil, err
	}
	request := Request{Type: typeName, Command: jsonCommand}
	response, err := api.request(request)
	if err != nil {
		return nil, err
	}
	if response.Type != typeName {
		return nil, &ErrUnexpectedResponseType{responseType: response.Type}
	}
	return unmarshal[RespType](response)
}

func emptyResponseRequest[ReqType any](
	api ClientRequester,
	command ReqType,
	typeName string,
) error {
	jsonCommand, err := json.Marshal(command)
	if err != nil {
		return err
	}
	request := Request{Type: typeName, Command: jsonCommand}
	response, err := api.request(request)
	if err != nil {
		return err
	}
	if response.Type != TypeEmptyResponse {
		return &ErrUnexpectedResponseType{responseType: response.Type}
	}
	return nil
}

func bareRequest[RespType any](api ClientRequester, typeName string) (*RespType, error) {
	request := Request{Type: typeName, Command: json.RawMessage{'{', '}'}}
	response, err := api.request(request)
	if err != nil {
		return nil, err
	}
	if response.Type != typeName {
		return nil, &ErrUnexpectedResponseType{responseType: response.Type}
	}
	return unmarshal[RespType](response)
}

func (api ClientRequester) PerformStatus() (*StatusResponse, error) {
	return bareRequest[StatusResponse](api, TypeStatus)
}

func (api ClientRequester) PerformListMap() (*ElementMapResponse, error) {
	return bareRequest[ElementMapResponse](api, TypeListMap)
}

func (api ClientRequester) PerformSlotStatus(slot int) (*ElementStatusResponse, error) {
	command := SlotStatusRequest{Slot: slot}
	return specificRequest[SlotStatusRequest, ElementStatusResponse](
		api,
		command,
		TypeSlotStatus,
	)
}

func (api ClientRequester) PerformDriveStatus(drive int) (*ElementStatusResponse, error) {
	command := DriveStatusRequest{Drive: drive}
	return specificRequest[DriveStatusRequest, ElementStatusResponse](
		api,
		command,
		TypeDriveStatus,
	)
}

func (api ClientRequester) PerformLoad(
	slot int,
	drive int,
	transport *uint16,
	dryRun bool,
	verbose bool,
) (*MoveResponse, error) {
	command := LoadRequest{
		Slot:      slot,
		Drive:     drive,
		Transport: transport,
		DryRun:    dryRun,
		Verbose:   verbose,
	}
	return specificRequest[LoadRequest, MoveResponse](api, command, TypeLoad)
}

func (api ClientRequester) PerformUnload(
	slot int,
	drive int,
	transport *uint16,
	dryRun bool,
) (*MoveResponse, error) {
	command := UnloadRequest{
		Slot:      slot,
		Drive:     drive,
		Transport: transport,
		DryRun:    dryRun,
	}
	return specificRequest[UnloadRequest, MoveResponse](api, command, TypeUnload)
}

func (api ClientRequester) PerformEject(
	slot int,
	drive int,
	transport *uint16,
	dryRun bool,
) (*MoveResponse, error) {
	command := EjectRequest{
		Slot:      slot,
		Drive:     drive,
		Transport: transport,
		DryRun:    dryRun,
	}
	return specificRequest[EjectRequest, MoveResponse](api, command, TypeEject)
}

func (api ClientRequester) PerformInsert(
	slot int,
	transport *uint16,
	dryRun bool,
) (*MoveResponse, error) {
	command := InsertRequest{
		Slot:      slot,
		Transport: transport,
		DryRun:    dryRun,
	}
	return specificRequest[InsertRequest, MoveResponse](api, command, TypeInsert)
}

func (api ClientRequester) PerformRetrieve(
	slot int,
	transport *uint16,
	dryRun bool,
) (*MoveResponse, error) {
	command := RetrieveRequest{
		Slot:      slot,
		Transport: transport,
		DryRun:    dryRun,
	}
	return specificRequest[RetrieveRequest, MoveResponse](api, command, TypeRetrieve)
}

func (api ClientRequester) PerformMove(
	transport uint16,
	source uint16,
	destination uint16,
	dryRun bool,
) (*MoveResponse, error) {
	command := MoveRequest{
		Transport:   transport,
		Source:      source,
		Destination: destination,
		DryRun:      dryRun,
	}
	return specificRequest[MoveRequest, MoveResponse](api, command, TypeMove)
}

func (api ClientRequester) PerformInquiry() (*InquiryResponse, error) {
	return bareRequest[InquiryResponse](api, TypeInquiry)
}

func (api ClientRequester) PerformTestUnitReady() error {
	return emptyResponseRequest[struct{}](api, struct{}{}, TypeTestUnitReady)
}

func (api ClientRequester) PerformInitStatus() error {
	return emptyResponseRequest[struct{}](api, struct{}{}, TypeInitStatus)
}

func (api ClientRequester) PerformLogSense(page byte) (*LogSenseResponse, error) {
	command := LogSenseRequest{Page: page}
	return specificRequest[LogSenseRequest, LogSenseResponse](api, command, TypeLogSense)
}

func (api ClientRequester) PerformReportLuns() (*ReportLunsResponse, error) {
	return bareRequest[ReportLunsResponse](api, TypeReportLuns)
}
