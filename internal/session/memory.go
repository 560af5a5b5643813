package session

import (
	"context"
	"fmt"

	"github.com/muurk/brewlink/internal/logging"
	"github.com/muurk/brewlink/internal/protocol"
	"go.uber.org/zap"
)

// ReadMemory sends req and decodes the read response. The reply must echo the
// requested range.
func (s *Session) ReadMemory(ctx context.Context, req protocol.ReadRequest) (*protocol.ReadResponse, error) {
	reply, err := s.Exchange(ctx, req.Serialize())
	if err != nil {
		return nil, err
	}
	if err := protocol.AssertValidChecksum(reply); err != nil {
		return nil, err
	}

	msg, err := protocol.DecodeMessage(reply)
	if err != nil {
		return nil, err
	}
	resp, err := protocol.ParseReadResponse(msg)
	if err != nil {
		return nil, err
	}
	if resp.Range != req.Range {
		return nil, &protocol.ShapeError{
			Record:  "read",
			Reason:  fmt.Sprintf("asked for %s, machine answered %s", req.Range, resp.Range),
			Preview: protocol.EscapeUnprintables(reply),
		}
	}

	logging.Debug("Memory read",
		zap.String("remote_addr", s.remote),
		zap.Stringer("range", resp.Range),
	)
	return resp, nil
}

// WriteMemory sends req and returns the machine's acknowledgement as received.
// The machine's reply to a write is not decoded.
func (s *Session) WriteMemory(ctx context.Context, req protocol.WriteRequest) (string, error) {
	reply, err := s.Exchange(ctx, req.Serialize())
	if err != nil {
		return "", err
	}
	logging.Info("Memory written",
		zap.String("remote_addr", s.remote),
		zap.Stringer("range", req.Range()),
		zap.Bool("ack_checksum_ok", protocol.VerifyChecksum(reply)),
	)
	return reply, nil
}

// MachineState fetches and decodes the configuration record.
func (s *Session) MachineState(ctx context.Context) (*protocol.MachineState, error) {
	reply, err := s.Exchange(ctx, protocol.MachineStateRequest().Serialize())
	if err != nil {
		return nil, err
	}
	state, err := protocol.DecodeMachineStateResponse(reply)
	if err != nil {
		return nil, fmt.Errorf("failed to decode machine state: %w", err)
	}
	return state, nil
}

// DisplayState fetches and decodes the live display record.
func (s *Session) DisplayState(ctx context.Context) (*protocol.DisplayState, error) {
	reply, err := s.Exchange(ctx, protocol.DisplayStateRequest().Serialize())
	if err != nil {
		return nil, err
	}
	state, err := protocol.DecodeDisplayStateResponse(reply)
	if err != nil {
		return nil, fmt.Errorf("failed to decode display state: %w", err)
	}
	return state, nil
}

// WriteMachineState writes st as the configuration record. The current record
// is read first and st is laid over it, so padding and unmapped bytes go back
// to the machine unchanged. Pressure profiles are checked against the machine
// limits before anything is sent.
func (s *Session) WriteMachineState(ctx context.Context, st *protocol.MachineState) (string, error) {
	profiles := map[string]protocol.PressureProfile{"A": st.ProfileA, "B": st.ProfileB, "C": st.ProfileC}
	for _, name := range []string{"A", "B", "C"} {
		if err := profiles[name].Validate(); err != nil {
			return "", fmt.Errorf("profile %s: %w", name, err)
		}
	}

	current, err := s.ReadMemory(ctx, protocol.MachineStateRequest())
	if err != nil {
		return "", fmt.Errorf("failed to read current machine state: %w", err)
	}
	record, err := protocol.OverlayMachineState(current.Data, st)
	if err != nil {
		return "", err
	}

	req, err := protocol.NewWriteRequestFromMemory(record)
	if err != nil {
		return "", err
	}
	return s.WriteMemory(ctx, req)
}
