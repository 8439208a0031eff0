package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-access/internal/audit"
	"github.com/nerrad567/gray-logic-access/internal/hardware/facade"
	"github.com/nerrad567/gray-logic-access/internal/validation"
)

// DeviceCommand is the body of POST /devices/{ref}/commands.
type DeviceCommand struct {
	Verb   string   `json:"verb"`
	Params []string `json:"params,omitempty"`
}

// CommandResult reports how the device actor answered.
type CommandResult struct {
	Device    string  `json:"device"`
	Verb      string  `json:"verb"`
	OK        bool    `json:"ok"`
	Reply     string  `json:"reply,omitempty"`
	ElapsedMS float64 `json:"elapsed_ms"`
}

const pointerVerb = "data/attributes/verb"

// handleDeviceCommand sends one command to a device actor and waits for its
// acknowledgement.
//
// Commands answered with OK or KO report ok=true or ok=false. State queries
// and RAISE return the actor's reply text. A device that does not answer in
// time gives 504, a device without an actor 503, and a malformed reply 502.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	dev, err := s.lookupDevice(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		s.writeDomainError(w, err, "device")
		return
	}

	var body DeviceCommand
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	body.Verb = strings.ToUpper(strings.TrimSpace(body.Verb))
	if !facade.KnownVerb(body.Verb) {
		writeValidationErrors(w, validation.List{
			validation.New(pointerVerb, fmt.Sprintf("unknown verb %q", body.Verb), nil),
		})
		return
	}
	if !dev.Enabled {
		writeError(w, http.StatusConflict, ErrCodeConflict, "device "+dev.Name+" is disabled")
		return
	}
	if s.transport == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "no hardware transport configured")
		return
	}

	params := make([]facade.Param, len(body.Params))
	for i, p := range body.Params {
		params[i] = facade.Str(p)
	}
	cmd := facade.NewCommand(body.Verb, params...)

	start := time.Now()
	result, err := s.runCommand(r.Context(), dev.Name, cmd)
	elapsed := time.Since(start)
	result.ElapsedMS = float64(elapsed) / float64(time.Millisecond)

	if s.telemetry != nil {
		s.telemetry.WriteCommandLatency(dev.Name, cmd.Verb(), err == nil && result.OK, elapsed)
	}

	switch {
	case errors.Is(err, facade.ErrProtocolViolation):
		s.logger.Error("device actor broke the command protocol", "device", dev.Name, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeDeviceProtocol, err.Error())
		return
	case errors.Is(err, facade.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, err.Error())
		return
	case errors.Is(err, facade.ErrNoResponder), errors.Is(err, facade.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
		return
	case err != nil:
		s.logger.Error("device command failed", "device", dev.Name, "verb", cmd.Verb(), "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeDeviceProtocol, err.Error())
		return
	}

	s.auditLog(audit.ActionCommand, audit.EntityDevice, dev.ID, map[string]any{
		"command": cmd.String(),
		"ok":      result.OK,
	})
	writeJSON(w, http.StatusOK, result)
}

// runCommand sends cmd and turns a protocol violation panic into an error,
// so one broken actor cannot take the request down with it.
func (s *Server) runCommand(ctx context.Context, device string, cmd facade.Command) (result CommandResult, err error) {
	result = CommandResult{Device: device, Verb: cmd.Verb()}
	ch := s.transport.Channel(device)

	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if pErr, ok := rec.(error); ok && errors.Is(pErr, facade.ErrProtocolViolation) {
			err = pErr
			return
		}
		panic(rec)
	}()

	if facade.IsQuery(cmd.Verb()) {
		reply, qErr := facade.Query(ctx, ch, s.commandTimeout, cmd)
		if qErr != nil {
			return result, qErr
		}
		result.Reply = reply
		result.OK = reply != facade.ReplyKO
		return result, nil
	}

	ok, sErr := facade.SendCommand(ctx, ch, s.commandTimeout, cmd)
	result.OK = ok
	return result, sErr
}
