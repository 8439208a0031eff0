package facade

import (
	"encoding/json"
	"errors"
	"fmt"
)

// wireRequest is the body of a command on the broker transports.
type wireRequest struct {
	ID     string   `json:"id,omitempty"`
	Frames []string `json:"frames"`
}

// wireReply is the body of an MQTT reply. NATS replies are the bare text
// since the broker already correlates them.
type wireReply struct {
	ID    string `json:"id"`
	Reply string `json:"reply"`
}

var errEmptyRequest = errors.New("facade: request has no frames")

func decodeRequest(payload []byte) (wireRequest, error) {
	var req wireRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return wireRequest{}, fmt.Errorf("decoding request: %w", err)
	}
	if len(req.Frames) == 0 {
		return wireRequest{}, errEmptyRequest
	}
	return req, nil
}
