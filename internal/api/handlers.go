package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/openblock-labs/hwbridge/internal/audit"
	"github.com/openblock-labs/hwbridge/internal/protocol"
	"github.com/openblock-labs/hwbridge/internal/session"
)

// defaultBaudrate applies when connectDevice omits the field.
const defaultBaudrate = 9600

func (s *Server) handleGetDeviceList(conn *session.Conn, _ protocol.Request) {
	descriptors := s.catalog.List()
	devices := make([]protocol.DeviceInfo, 0, len(descriptors))
	for _, d := range descriptors {
		status := "available"
		connected := conn.Attached(d.ID)
		if connected {
			status = "connected"
		}
		devices = append(devices, protocol.DeviceInfo{
			ID:           d.ID,
			Name:         d.Name,
			Type:         d.Class,
			Port:         d.Port,
			Status:       status,
			Capabilities: d.Capabilities,
			Pins:         d.Pins,
			Connected:    connected,
		})
	}

	conn.Send(protocol.DeviceList{
		Type:    protocol.TypeDeviceList,
		Devices: devices,
		Count:   len(devices),
	})
}

func (s *Server) handleConnectDevice(conn *session.Conn, req protocol.Request) {
	if req.DeviceID == "" {
		conn.Send(protocol.NewError("deviceId is required"))
		return
	}

	desc, err := s.catalog.Get(req.DeviceID)
	if err != nil {
		conn.Send(protocol.NewError("device not found: " + req.DeviceID))
		return
	}

	baudrate := req.Baudrate
	if baudrate == 0 {
		baudrate = defaultBaudrate
	}
	peripheralID := req.PeripheralID

	// The duplicate check runs after the delay, matching the observable
	// behavior of real port negotiation: two racing connects both wait,
	// and the loser learns its fate only when its delay elapses.
	lo, hi := s.cfg.Simulation.ConnectDelayWindow()
	session.After(conn.Context(), session.Jitter(lo, hi), func() {
		sess, err := conn.Attach(desc, peripheralID, baudrate)
		if err != nil {
			if errors.Is(err, session.ErrAlreadyAttached) {
				conn.Send(protocol.NewError("device already connected: " + desc.ID))
			}
			return
		}

		conn.Send(protocol.DeviceConnected{
			Type:         protocol.TypeDeviceConnected,
			DeviceID:     desc.ID,
			PeripheralID: peripheralID,
			Baudrate:     baudrate,
			Capabilities: desc.Capabilities,
			Pins:         desc.Pins,
			Timestamp:    protocol.Timestamp(),
		})
		s.logger.Info("device connected",
			"client_id", conn.ID(), "device_id", desc.ID, "baudrate", baudrate)

		s.telemetry.Start(conn, sess)
		s.pipeline.Welcome(conn, sess)
		s.recordEvent(conn.ID(), desc.ID, audit.EventDeviceConnected, "")
		s.publishEvent(desc.ID, "connected", conn.ID())
	})
}

func (s *Server) handleDisconnectDevice(conn *session.Conn, req protocol.Request) {
	if _, err := s.catalog.Get(req.DeviceID); err != nil {
		conn.Send(protocol.NewError("device not found: " + req.DeviceID))
		return
	}

	if _, ok := conn.Detach(req.DeviceID); !ok {
		conn.Send(protocol.NewError("device not connected: " + req.DeviceID))
		return
	}

	conn.Send(protocol.DeviceDisconnected{
		Type:      protocol.TypeDeviceDisconnected,
		DeviceID:  req.DeviceID,
		Timestamp: protocol.Timestamp(),
	})
	s.logger.Info("device disconnected", "client_id", conn.ID(), "device_id", req.DeviceID)
	s.recordEvent(conn.ID(), req.DeviceID, audit.EventDeviceDisconnected, "")
	s.publishEvent(req.DeviceID, "disconnected", conn.ID())
}

func (s *Server) handleSendData(conn *session.Conn, req protocol.Request) {
	if !conn.Attached(req.DeviceID) {
		conn.Send(protocol.NewError("device not connected: " + req.DeviceID))
		return
	}

	// The simulated device has nothing to do with the bytes; the frame is
	// acknowledged by echoing it back as device data.
	conn.Send(protocol.NewDeviceData(req.DeviceID, req.Data))
}

func (s *Server) handleGetDeviceStatus(conn *session.Conn, req protocol.Request) {
	sess, ok := conn.Session(req.DeviceID)
	if !ok {
		conn.Send(protocol.NewError("device not connected: " + req.DeviceID))
		return
	}

	conn.Send(protocol.DeviceStatus{
		Type:        protocol.TypeDeviceStatus,
		DeviceID:    req.DeviceID,
		Status:      "connected",
		ConnectedAt: sess.ConnectedAt().UTC().Format(time.RFC3339),
		Uptime:      sess.Uptime(),
	})
}

func (s *Server) handlePing(conn *session.Conn, _ protocol.Request) {
	conn.Send(protocol.NewPong())
}

func (s *Server) handleUploadCode(conn *session.Conn, req protocol.Request) {
	sess, ok := conn.Session(req.DeviceID)
	if !ok {
		conn.Send(protocol.NewError("device not connected: " + req.DeviceID))
		return
	}

	s.logger.Info("code upload started",
		"client_id", conn.ID(), "device_id", req.DeviceID, "code_length", len(req.Code))
	s.pipeline.Upload(conn, sess, req.Code)
	s.recordEvent(conn.ID(), req.DeviceID, audit.EventCodeUploaded, fmt.Sprintf("%d bytes", len(req.Code)))
}

func (s *Server) handleExecuteCode(conn *session.Conn, req protocol.Request) {
	sess, ok := conn.Session(req.DeviceID)
	if !ok {
		conn.Send(protocol.NewError("device not connected: " + req.DeviceID))
		return
	}

	s.pipeline.Execute(conn, sess, req.Code)
	s.recordEvent(conn.ID(), req.DeviceID, audit.EventCodeExecuted, fmt.Sprintf("%d bytes", len(req.Code)))
	s.publishEvent(req.DeviceID, "code_executed", conn.ID())
}
