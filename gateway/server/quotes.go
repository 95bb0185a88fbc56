package server

import (
	"encoding/json"
	"net/http"

	"terranet/pricing"
)

// QuoteRequest is the preview payload: a list of drawn fields plus the
// chosen program. quote_id and grower_id are opaque to the engine and are
// echoed back for the UI.
type QuoteRequest struct {
	QuoteID  string          `json:"quote_id"`
	GrowerID string          `json:"grower_id"`
	Program  pricing.Program `json:"program"`
	Fields   []pricing.Field `json:"fields"`
}

// QuoteResponse wraps the computed quote with the request identifiers.
type QuoteResponse struct {
	QuoteID  string `json:"quote_id"`
	GrowerID string `json:"grower_id"`
	pricing.Quote
}

// QuotePreview prices a list of fields and returns the breakdown. Line
// items come back in input order; the drawing UI matches them positionally.
func (s *Server) QuotePreview(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}

	quote, err := pricing.ComputeQuote(s.schedule, req.Program, req.Fields)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, QuoteResponse{
		QuoteID:  req.QuoteID,
		GrowerID: req.GrowerID,
		Quote:    quote,
	})
}
