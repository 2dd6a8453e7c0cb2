package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
	"github.com/fides-dpp/trust-engine/internal/core/ports"
)

type submitDteRequest struct {
	SupplierDID       string                    `json:"supplierDid"`
	EventID           string                    `json:"eventId"`
	EventType         string                    `json:"eventType,omitempty"`
	EventTime         time.Time                 `json:"eventTime"`
	Products          []domain.ProductReference `json:"products"`
	CredentialSubject map[string]any            `json:"credentialSubject,omitempty"`
	Expiration        *time.Time                `json:"expiration,omitempty"`
}

func (s *Server) submitDte(w http.ResponseWriter, r *http.Request) {
	var req submitDteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.dte.Submit(r.Context(), &ports.SubmitDteRequest{
		SupplierDID:       req.SupplierDID,
		EventID:           req.EventID,
		EventType:         req.EventType,
		EventTime:         req.EventTime,
		Products:          req.Products,
		CredentialSubject: req.CredentialSubject,
		Expiration:        req.Expiration,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type productEventResponse struct {
	EventID   string     `json:"eventId"`
	EventType string     `json:"eventType,omitempty"`
	EventTime *time.Time `json:"eventTime,omitempty"`
	ProductID string     `json:"productId"`
	Role      string     `json:"role"`
	DteCID    string     `json:"dteCid"`
	IssuerDID string     `json:"issuerDid"`
}

func (s *Server) listProductEvents(w http.ResponseWriter, r *http.Request) {
	productID := urlParam(r, "productId")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid limit"})
			return
		}
		limit = parsed
	}
	records, err := s.resolution.ListByProductID(r.Context(), productID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	events := make([]productEventResponse, 0, len(records))
	for _, record := range records {
		events = append(events, productEventResponse{
			EventID:   record.EventID,
			EventType: record.EventType,
			EventTime: record.EventTime,
			ProductID: record.ProductID,
			Role:      string(record.Role),
			DteCID:    record.DteCID,
			IssuerDID: record.IssuerDID,
		})
	}
	writeJSON(w, http.StatusOK, events)
}
