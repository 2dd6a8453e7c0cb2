package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
	"github.com/fides-dpp/trust-engine/internal/core/ports"
	"github.com/fides-dpp/trust-engine/internal/core/services"
)

type issueCredentialRequest struct {
	IssuerDID         string                   `json:"issuerDid"`
	Subject           string                   `json:"subject,omitempty"`
	CredentialSubject map[string]any           `json:"credentialSubject"`
	Types             []string                 `json:"types,omitempty"`
	ExtraContexts     []string                 `json:"contexts,omitempty"`
	CredentialID      string                   `json:"credentialId,omitempty"`
	Expiration        *time.Time               `json:"expiration,omitempty"`
	Schema            *domain.CredentialSchema `json:"credentialSchema,omitempty"`
	Revocable         bool                     `json:"revocable,omitempty"`
}

type issueCredentialResponse struct {
	JWT string `json:"jwt"`
}

func (s *Server) issueCredential(w http.ResponseWriter, r *http.Request) {
	var req issueCredentialRequest
	if !decodeBody(w, r, &req) {
		return
	}
	token, err := s.credential.Issue(r.Context(), &ports.IssueCredentialRequest{
		IssuerDID:         req.IssuerDID,
		Subject:           req.Subject,
		CredentialSubject: req.CredentialSubject,
		Types:             req.Types,
		ExtraContexts:     req.ExtraContexts,
		CredentialID:      req.CredentialID,
		Expiration:        req.Expiration,
		Schema:            req.Schema,
		Revocable:         req.Revocable,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, issueCredentialResponse{JWT: token})
}

type verifyCredentialRequest struct {
	JWT             string `json:"jwt"`
	CheckTemporal   bool   `json:"checkTemporal,omitempty"`
	CheckRevocation bool   `json:"checkRevocation,omitempty"`
}

func (s *Server) verifyCredential(w http.ResponseWriter, r *http.Request) {
	var req verifyCredentialRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.credential.Verify(r.Context(), req.JWT, ports.VerifyCredentialOptions{
		CheckTemporal:   req.CheckTemporal,
		CheckRevocation: req.CheckRevocation,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type revokeCredentialRequest struct {
	IssuerDID string `json:"issuerDid"`
	Index     uint64 `json:"index"`
}

func (s *Server) revokeCredential(w http.ResponseWriter, r *http.Request) {
	if s.revocation == nil {
		writeError(w, r, services.ErrConfigurationMissing)
		return
	}
	var req revokeCredentialRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.revocation.Revoke(r.Context(), req.IssuerDID, req.Index); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getStatusList(w http.ResponseWriter, r *http.Request) {
	if s.revocation == nil {
		writeError(w, r, services.ErrConfigurationMissing)
		return
	}
	did, ok := didParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid did"})
		return
	}
	snapshot, err := s.revocation.CurrentSnapshot(r.Context(), did)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(snapshot)
}

// getStatus is the readiness endpoint
func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if s.health != nil && !s.health.Healthy() {
		status = http.StatusServiceUnavailable
	}
	var monitors map[string]bool
	if s.health != nil {
		monitors = s.health.Snapshot()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(monitors)
}
