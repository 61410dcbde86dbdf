// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package api

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"mchanger/pkg/logger"
	"mchanger/pkg/smc"
)

const mountFeedbackTimeout = 30 * time.Second

// DemonApiHandler owns the single changer session. One lock
// serializes every request, so the device never sees more than one
// outstanding command.
type DemonApiHandler struct {
	changer *smc.Changer
	mounts  smc.MountObserver
	apiLock sync.Mutex
}

func (handler *DemonApiHandler) Status() StatusResponse {
	handler.apiLock.Lock()
	defer handler.apiLock.Unlock()
	response := StatusResponse{
		SessionId: handler.changer.ID.String(),
		Vendor:    handler.changer.Info.Vendor,
		Product:   handler.changer.Info.Product,
		Path:      handler.changer.Info.Path,
		Exclusive: handler.changer.Exclusive,
	}
	identity, err := handler.changer.Inquiry()
	if err != nil {
		logger.GetLogger().Warnf("inquiry for status failed: %v", err)
		return response
	}
	response.Vendor = identity.Vendor
	response.Product = identity.Product
	response.Revision = identity.Revision
	return response
}

func (handler *DemonApiHandler) ListMap() (*ElementMapResponse, error) {
	handler.apiLock.Lock()
	defer handler.apiLock.Unlock()
	topology, err := handler.changer.ListTopology()
	if err != nil {
		return nil, err
	}
	response := &ElementMapResponse{
		Transports:    topology.Transports,
		Slots:         topology.Slots,
		Drives:        topology.Drives,
		ImportExports: topology.ImportExports,
	}
	if assignment, err := handler.changer.Assignment(); err == nil {
		if missing := int(assignment.StorageCount) - len(topology.Slots); missing > 0 {
			response.Note = fmt.Sprintf(
				"%d of %d storage elements missing, a magazine may be removed",
				missing, assignment.StorageCount)
			logger.GetLogger().Warn(response.Note)
		}
	}
	return response, nil
}

func (handler *DemonApiHandler) SlotStatus(request SlotStatusRequest) (*ElementStatusResponse, error) {
	handler.apiLock.Lock()
	defer handler.apiLock.Unlock()
	status, err := handler.changer.SlotStatus(request.Slot)
	if err != nil {
		return nil, err
	}
	return elementStatusResponse(status), nil
}

func (handler *DemonApiHandler) DriveStatus(request DriveStatusRequest) (*ElementStatusResponse, error) {
	handler.apiLock.Lock()
	defer handler.apiLock.Unlock()
	status, err := handler.changer.DriveStatus(request.Drive)
	if err != nil {
		return nil, err
	}
	return elementStatusResponse(status), nil
}

func (handler *DemonApiHandler) Load(request LoadRequest) (*MoveResponse, error) {
	handler.apiLock.Lock()
	defer handler.apiLock.Unlock()
	options := moveOptions(request.Transport, request.DryRun)
	moves, err := handler.changer.Load(request.Slot, request.Drive, options)
	if err != nil {
		return nil, err
	}
	response := moveResponse(moves, request.DryRun)
	if request.Verbose && response.Executed && len(moves) > 0 && handler.mounts != nil {
		mount, mounted, err := handler.mounts.WaitForMount(mountFeedbackTimeout)
		if err != nil {
			logger.GetLogger().Warnf("mount observation failed: %v", err)
		} else if mounted {
			response.Mounted = &MountRepresentation{Name: mount.Name, Size: mount.Size}
		}
	}
	return response, nil
}

func (handler *DemonApiHandler) Unload(request UnloadRequest) (*MoveResponse, error) {
	handler.apiLock.Lock()
	defer handler.apiLock.Unlock()
	options := moveOptions(request.Transport, request.DryRun)
	moves, err := handler.changer.Unload(request.Slot, request.Drive, options)
	if err != nil {
		return nil, err
	}
	return moveResponse(moves, request.DryRun), nil
}

func (handler *DemonApiHandler) Eject(request EjectRequest) (*MoveResponse, error) {
	handler.apiLock.Lock()
	defer handler.apiLock.Unlock()
	options := moveOptions(request.Transport, request.DryRun)
	moves, err := handler.changer.Eject(request.Slot, request.Drive, options)
	if err != nil {
		return nil, err
	}
	return moveResponse(moves, request.DryRun), nil
}

func (handler *DemonApiHandler) Insert(request InsertRequest) (*MoveResponse, error) {
	handler.apiLock.Lock()
	defer handler.apiLock.Unlock()
	options := moveOptions(request.Transport, request.DryRun)
	moves, err := handler.changer.Insert(request.Slot, options)
	if err != nil {
		return nil, err
	}
	return moveResponse(moves, request.DryRun), nil
}

func (handler *DemonApiHandler) Retrieve(request RetrieveRequest) (*MoveResponse, error) {
	handler.apiLock.Lock()
	defer handler.apiLock.Unlock()
	options := moveOptions(request.Transport, request.DryRun)
	moves, err := handler.changer.Retrieve(request.Slot, options)
	if err != nil {
		return nil, err
	}
	return moveResponse(moves, request.DryRun), nil
}

func (handler *DemonApiHandler) Move(request MoveRequest) (*MoveResponse, error) {
	handler.apiLock.Lock()
	defer handler.apiLock.Unlock()
	moves := []smc.Move{{
		Transport:   request.Transport,
		Source:      request.Source,
		Destination: request.Destination,
		Purpose:     "move",
	}}
	if !request.DryRun {
		err := handler.changer.MoveMedium(request.Transport, request.Source, request.Destination)
		if err != nil {
			return nil, err
		}
	}
	return moveResponse(moves, request.DryRun), nil
}

func (handler *DemonApiHandler) Inquiry() (*InquiryResponse, error) {
	handler.apiLock.Lock()
	defer handler.apiLock.Unlock()
	identity, err := handler.changer.Inquiry()
	if err != nil {
		return nil, err
	}
	return &InquiryResponse{
		Vendor:   identity.Vendor,
		Product:  identity.Product,
		Revision: identity.Revision,
	}, nil
}

func (handler *DemonApiHandler) TestUnitReady() error {
	handler.apiLock.Lock()
	defer handler.apiLock.Unlock()
	return handler.changer.TestUnitReady()
}

func (handler *DemonApiHandler) InitStatus() error {
	handler.apiLock.Lock()
	defer handler.apiLock.Unlock()
	return handler.changer.InitializeElementStatus()
}

func (handler *DemonApiHandler) LogSense(request LogSenseRequest) (*LogSenseResponse, error) {
	handler.apiLock.Lock()
	defer handler.apiLock.Unlock()
	payload, err := handler.changer.LogSense(request.Page)
	if err != nil {
		return nil, err
	}
	return &LogSenseResponse{
		Page:   request.Page,
		Length: len(payload),
		Data:   smc.FormatHex(payload),
	}, nil
}

func (handler *DemonApiHandler) ReportLuns() (*ReportLunsResponse, error) {
	handler.apiLock.Lock()
	defer handler.apiLock.Unlock()
	luns, err := handler.changer.ReportLuns()
	if err != nil {
		return nil, err
	}
	return &ReportLunsResponse{Luns: luns}, nil
}

func (handler *DemonApiHandler) HandleRequest(request *Request) Response {
	response := Response{Type: request.Type}
	switch request.Type {
	case TypeStatus:
		return marshalResult(response, handler.Status())
	case TypeListMap:
		result, err := handler.ListMap()
		if err != nil {
			return ErrorResponse(err)
		}
		return marshalResult(response, result)
	case TypeSlotStatus:
		command := &SlotStatusRequest{}
		if err := json.Unmarshal(request.Command, command); err != nil {
			return ErrorResponse(err)
		}
		result, err := handler.SlotStatus(*command)
		if err != nil {
			return ErrorResponse(err)
		}
		return marshalResult(response, result)
	case TypeDriveStatus:
		command := &DriveStatusRequest{}
		if err := json.Unmarshal(request.Command, command); err != nil {
			return ErrorResponse(err)
		}
		result, err := handler.DriveStatus(*command)
		if err != nil {
			return ErrorResponse(err)
		}
		return marshalResult(response, result)
	case TypeLoad:
		command := &LoadRequest{}
		if err := json.Unmarshal(request.Command, command); err != nil {
			return ErrorResponse(err)
		}
		result, err := handler.Load(*command)
		if err != nil {
			return ErrorResponse(err)
		}
		return marshalResult(response, result)
	case TypeUnload:
		command := &UnloadRequest{}
		if err := json.Unmarshal(request.Command, command); err != nil {
			return ErrorResponse(err)
		}
		result, err := handler.Unload(*command)
		if err != nil {
			return ErrorResponse(err)
		}
		return marshalResult(response, result)
	case TypeEject:
		command := &EjectRequest{}
		if err := json.Unmarshal(request.Command, command); err != nil {
			return ErrorResponse(err)
		}
		result, err := handler.Eject(*command)
		if err != nil {
			return ErrorResponse(err)
		}
		return marshalResult(response, result)
	case TypeInsert:
		command := &InsertRequest{}
		if err := json.Unmarshal(request.Command, command); err != nil {
			return ErrorResponse(err)
		}
		result, err := handler.Insert(*command)
		if err != nil {
			return ErrorResponse(err)
		}
		return marshalResult(response, result)
	case TypeRetrieve:
		command := &RetrieveRequest{}
		if err := json.Unmarshal(request.Command, command); err != nil {
			return ErrorResponse(err)
		}
		result, err := handler.Retrieve(*command)
		if err != nil {
			return ErrorResponse(err)
		}
		return marshalResult(response, result)
	case TypeMove:
		command := &MoveRequest{}
		if err := json.Unmarshal(request.Command, command); err != nil {
			return ErrorResponse(err)
		}
		result, err := handler.Move(*command)
		if err != nil {
			return ErrorResponse(err)
		}
		return marshalResult(response, result)
	case TypeInquiry:
		result, err := handler.Inquiry()
		if err != nil {
			return ErrorResponse(err)
		}
		return marshalResult(response, result)
	case TypeTestUnitReady:
		if err := handler.TestUnitReady(); err != nil {
			return ErrorResponse(err)
		}
		return emptyResponse()
	case TypeInitStatus:
		if err := handler.InitStatus(); err != nil {
			return ErrorResponse(err)
		}
		return emptyResponse()
	case TypeLogSense:
		command := &LogSenseRequest{}
		if err := json.Unmarshal(request.Command, command); err != nil {
			return ErrorResponse(err)
		}
		result, err := handler.LogSense(*command)
		if err != nil {
			return ErrorResponse(err)
		}
		return marshalResult(response, result)
	case TypeReportLuns:
		result, err := handler.ReportLuns()
		if err != nil {
			return ErrorResponse(err)
		}
		return marshalResult(response, result)
	default:
		return ErrorResponse(fmt.Errorf("unknown request type %s", request.Type))
	}
}

func marshalResult(response Response, result interface{}) Response {
	var err error
	response.Result, err = json.Marshal(result)
	if err != nil {
		return ErrorResponse(err)
	}
	return response
}

func elementStatusResponse(status smc.ElementStatus) *ElementStatusResponse {
	return &ElementStatusResponse{
		Address:       status.Address,
		Full:          status.Full,
		Exception:     status.Exception,
		SourceValid:   status.SourceValid,
		SourceAddress: status.SourceAddress,
	}
}

func moveOptions(transport *uint16, dryRun bool) smc.MoveOptions {
	options := smc.MoveOptions{DryRun: dryRun}
	if transport != nil {
		options.TransportAddress = *transport
		options.ExplicitTransport = true
	}
	return options
}

func moveResponse(moves []smc.Move, dryRun bool) *MoveResponse {
	response := &MoveResponse{Executed: !dryRun}
	for _, move := range moves {
		response.Moves = append(response.Moves, MoveRepresentation{
			Transport:   move.Transport,
			Source:      move.Source,
			Destination: move.Destination,
			Purpose:     move.Purpose,
		})
	}
	return response
}

func emptyResponse() Response {
	return Response{Error: "", Result: json.RawMessage{'{', '}'}, Type: TypeEmptyResponse}
}

func ErrorResponse(err error) Response {
	return Response{Error: err.Error(), Result: json.RawMessage{'{', '}'}, Type: TypeEmptyResponse}
}
