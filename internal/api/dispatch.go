package api

import (
	"encoding/json"

	"github.com/openblock-labs/hwbridge/internal/protocol"
	"github.com/openblock-labs/hwbridge/internal/session"
)

// handlerFunc handles one inbound message kind for one connection.
type handlerFunc func(conn *session.Conn, req protocol.Request)

// buildHandlers wires the dispatch table, one entry per message kind.
func (s *Server) buildHandlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		protocol.TypeGetDeviceList:    s.handleGetDeviceList,
		protocol.TypeConnectDevice:    s.handleConnectDevice,
		protocol.TypeDisconnectDevice: s.handleDisconnectDevice,
		protocol.TypeSendData:         s.handleSendData,
		protocol.TypeGetDeviceStatus:  s.handleGetDeviceStatus,
		protocol.TypePing:             s.handlePing,
		protocol.TypeUploadCode:       s.handleUploadCode,
		protocol.TypeExecuteCode:      s.handleExecuteCode,
	}
}

// dispatch parses one inbound message and routes it by type.
// Malformed or unknown messages get an error frame; the connection stays up.
func (s *Server) dispatch(conn *session.Conn, data []byte) {
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Debug("malformed message", "client_id", conn.ID(), "error", err)
		conn.Send(protocol.NewError("invalid message: not a JSON object"))
		return
	}
	if req.Type == "" {
		conn.Send(protocol.NewError("invalid message: missing type"))
		return
	}

	handler, ok := s.handlers[req.Type]
	if !ok {
		s.logger.Debug("unknown message type", "client_id", conn.ID(), "type", req.Type)
		conn.Send(protocol.NewError("unknown message type: " + req.Type))
		return
	}

	handler(conn, req)
}
