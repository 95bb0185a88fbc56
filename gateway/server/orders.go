package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"terranet/orders"
	"terranet/orders/models"
	"terranet/pricing"
)

// CheckoutRequest is the checkout submission: grower contact details plus
// the fields to enrol. Geometry rides along untouched and ends up in the
// GeoJSON exports.
type CheckoutRequest struct {
	GrowerName  string                 `json:"grower_name"`
	GrowerEmail string                 `json:"grower_email"`
	FarmName    string                 `json:"farm_name"`
	Phone       string                 `json:"phone"`
	Notes       string                 `json:"notes"`
	Address1    string                 `json:"address1"`
	Address2    string                 `json:"address2"`
	City        string                 `json:"city"`
	State       string                 `json:"state"`
	PostalCode  string                 `json:"postal_code"`
	Country     string                 `json:"country"`
	Program     pricing.Program        `json:"program"`
	Fields      []CheckoutFieldRequest `json:"fields"`
}

// CheckoutFieldRequest is one field in a checkout submission.
type CheckoutFieldRequest struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Acres       float64         `json:"acres"`
	CropProgram string          `json:"crop_program"`
	Notes       string          `json:"notes"`
	Geometry    json.RawMessage `json:"geometry"`
}

// CheckoutResponse acknowledges the created order.
type CheckoutResponse struct {
	QuoteID     string         `json:"quote_id"`
	Status      string         `json:"status"`
	AnnualTotal pricing.Amount `json:"annual_total"`
	Message     string         `json:"message"`
}

// StartCheckout prices the submitted fields server side, persists the
// order with its per-field costs, and writes the export files.
func (s *Server) StartCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.GrowerName) == "" {
		s.respondError(w, &pricing.ValidationError{Msg: "grower_name is required"})
		return
	}
	if strings.TrimSpace(req.GrowerEmail) == "" {
		s.respondError(w, &pricing.ValidationError{Msg: "grower_email is required"})
		return
	}

	// Submitted acreage is repriced here rather than trusting any totals
	// the client previewed.
	priced := make([]pricing.Field, len(req.Fields))
	for i, f := range req.Fields {
		priced[i] = pricing.Field{ID: f.ID, Name: f.Name, Acres: f.Acres}
	}
	quote, err := pricing.ComputeQuote(s.schedule, req.Program, priced)
	if err != nil {
		s.respondError(w, err)
		return
	}

	input := orders.CheckoutInput{
		GrowerName:  req.GrowerName,
		GrowerEmail: req.GrowerEmail,
		FarmName:    req.FarmName,
		Phone:       req.Phone,
		Notes:       req.Notes,
		Address1:    req.Address1,
		Address2:    req.Address2,
		City:        req.City,
		State:       req.State,
		PostalCode:  req.PostalCode,
		Country:     req.Country,
		Program:     req.Program,
		AnnualTotal: quote.AnnualTotal,
	}
	for i, f := range req.Fields {
		input.Fields = append(input.Fields, orders.CheckoutField{
			ID:          f.ID,
			Name:        f.Name,
			Acres:       f.Acres,
			CropProgram: f.CropProgram,
			Notes:       f.Notes,
			AnnualCost:  quote.Lines[i].Subtotal,
			Geometry:    f.Geometry,
		})
	}

	order, err := s.store.CreateOrder(r.Context(), input)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.logger.Info("checkout started",
		"quote_id", order.QuoteID,
		"program", order.Program,
		"fields", order.FieldCount,
	)
	s.respondJSON(w, http.StatusCreated, CheckoutResponse{
		QuoteID:     order.QuoteID,
		Status:      string(order.Status),
		AnnualTotal: order.AnnualTotal,
		Message:     "Order received. Our onboarding team will reach out shortly.",
	})
}

func (s *Server) ListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListOrders(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"orders": list, "count": len(list)})
}

// orderDetail is the full order view: fields, audit trail, and the export
// files currently present in the order directory.
type orderDetail struct {
	*models.Order
	StatusHistory []statusEntry `json:"status_history"`
	Exports       []string      `json:"exports"`
}

type statusEntry struct {
	From models.OrderStatus `json:"from,omitempty"`
	To   models.OrderStatus `json:"to"`
	At   string             `json:"at"`
}

func (s *Server) GetOrder(w http.ResponseWriter, r *http.Request) {
	quoteID := chi.URLParam(r, "quoteID")
	order, err := s.store.GetOrder(r.Context(), quoteID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	history, err := s.store.StatusHistory(r.Context(), quoteID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	detail := orderDetail{Order: order, Exports: s.store.AvailableExports(quoteID)}
	for _, change := range history {
		detail.StatusHistory = append(detail.StatusHistory, statusEntry{
			From: change.From,
			To:   change.To,
			At:   change.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	s.respondJSON(w, http.StatusOK, detail)
}

func (s *Server) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	quoteID := chi.URLParam(r, "quoteID")
	if err := s.store.DeleteOrder(r.Context(), quoteID); err != nil {
		s.respondError(w, err)
		return
	}
	s.logger.Info("order deleted", "quote_id", quoteID)
	s.respondJSON(w, http.StatusOK, map[string]any{"quote_id": quoteID, "deleted": true})
}

func (s *Server) GetOrderStatus(w http.ResponseWriter, r *http.Request) {
	quoteID := chi.URLParam(r, "quoteID")
	order, err := s.store.GetOrder(r.Context(), quoteID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"quote_id": order.QuoteID,
		"status":   order.Status,
	})
}

type statusUpdateRequest struct {
	Status models.OrderStatus `json:"status"`
}

func (s *Server) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	quoteID := chi.URLParam(r, "quoteID")
	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}
	order, err := s.store.UpdateStatus(r.Context(), quoteID, req.Status)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.logger.Info("order status updated", "quote_id", order.QuoteID, "status", order.Status)
	s.respondJSON(w, http.StatusOK, map[string]any{
		"quote_id": order.QuoteID,
		"status":   order.Status,
	})
}

func (s *Server) BuildPacket(w http.ResponseWriter, r *http.Request) {
	quoteID := chi.URLParam(r, "quoteID")
	if _, err := s.store.BuildPacket(r.Context(), quoteID); err != nil {
		s.respondError(w, err)
		return
	}
	s.logger.Info("onboarding packet built", "quote_id", quoteID)
	s.respondJSON(w, http.StatusOK, map[string]any{
		"quote_id": quoteID,
		"packet":   orders.ExportPacket,
	})
}

// DownloadExport serves one export file from the order directory. The
// filename must match the allowlist exactly; paths never reach the
// filesystem unchecked.
func (s *Server) DownloadExport(w http.ResponseWriter, r *http.Request) {
	quoteID := chi.URLParam(r, "quoteID")
	filename := chi.URLParam(r, "filename")
	if !orders.ValidExportFile(filename) {
		s.respondJSON(w, http.StatusNotFound, errorResponse{Error: "unknown export file"})
		return
	}
	path, err := s.store.ExportPath(r.Context(), quoteID, filename)
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	http.ServeFile(w, r, path)
}
