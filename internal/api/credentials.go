package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-access/internal/access"
	"github.com/nerrad567/gray-logic-access/internal/credential"
	"github.com/nerrad567/gray-logic-access/internal/validation"
)

// handleDecodeCredential converts a card id and bit count into its raw and
// formatted card numbers.
//
// Request: {"card_id": "00:00:00:ff", "nb_bits": 26}
func (s *Server) handleDecodeCredential(w http.ResponseWriter, r *http.Request) {
	var card credential.RFIDCard
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	info, err := access.DescribeCard(card)
	if err != nil {
		if list, ok := validation.Collect(err); ok {
			writeValidationErrors(w, list)
			return
		}
		if errors.Is(err, credential.ErrInvalidCardID) {
			writeValidationErrors(w, validation.List{
				validation.New(credential.PointerCardID, err.Error(), err),
			})
			return
		}
		s.writeDomainError(w, err, "credential")
		return
	}
	writeJSON(w, http.StatusOK, info)
}
