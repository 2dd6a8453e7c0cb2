package api

import (
	"net/http"

	"github.com/fides-dpp/trust-engine/internal/core/domain"
)

// registerIssuerRequest is the POST /v1/issuers body
type registerIssuerRequest struct {
	Domain           string `json:"domain"`
	OrganizationName string `json:"organizationName"`
}

// issuerResponse is the public view of a registry entry. Key material is
// limited to the public key inside the DID document projection.
type issuerResponse struct {
	DID                 string                     `json:"did"`
	Status              domain.IssuerStatus        `json:"status"`
	Domain              string                     `json:"domain"`
	OrganizationName    string                     `json:"organizationName,omitempty"`
	TrustedSupplierDIDs []string                   `json:"trustedSupplierDids"`
	AuthorizedAccounts  []domain.AuthorizedAccount `json:"authorizedAccounts"`
	LastError           *string                    `json:"lastError,omitempty"`
}

func toIssuerResponse(issuer *domain.IssuerIdentity) issuerResponse {
	resp := issuerResponse{
		DID:                 issuer.DID,
		Status:              issuer.Status,
		Domain:              issuer.Metadata.Domain,
		OrganizationName:    issuer.Metadata.OrganizationName,
		TrustedSupplierDIDs: issuer.Metadata.TrustedSupplierDIDs,
		AuthorizedAccounts:  issuer.Metadata.AuthorizedAccounts,
		LastError:           issuer.LastError,
	}
	if resp.TrustedSupplierDIDs == nil {
		resp.TrustedSupplierDIDs = []string{}
	}
	if resp.AuthorizedAccounts == nil {
		resp.AuthorizedAccounts = []domain.AuthorizedAccount{}
	}
	return resp
}

func (s *Server) registerIssuer(w http.ResponseWriter, r *http.Request) {
	var req registerIssuerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	issuer, err := s.identity.Register(r.Context(), req.Domain, req.OrganizationName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toIssuerResponse(issuer))
}

func (s *Server) getIssuer(w http.ResponseWriter, r *http.Request) {
	did, ok := didParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid did"})
		return
	}
	issuer, err := s.identity.Get(r.Context(), did)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toIssuerResponse(issuer))
}

func (s *Server) verifyIssuer(w http.ResponseWriter, r *http.Request) {
	did, ok := didParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid did"})
		return
	}
	result, err := s.identity.Verify(r.Context(), did)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type updateIssuerRequest struct {
	OrganizationName    *string   `json:"organizationName,omitempty"`
	TrustedSupplierDIDs *[]string `json:"trustedSupplierDids,omitempty"`
}

func (s *Server) updateIssuer(w http.ResponseWriter, r *http.Request) {
	did, ok := didParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid did"})
		return
	}
	var req updateIssuerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	patch := domain.IssuerMetadataPatch{
		OrganizationName:    req.OrganizationName,
		TrustedSupplierDIDs: req.TrustedSupplierDIDs,
	}
	if err := s.identity.UpdateMetadata(r.Context(), did, patch); err != nil {
		writeError(w, r, err)
		return
	}
	issuer, err := s.identity.Get(r.Context(), did)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toIssuerResponse(issuer))
}

func (s *Server) getDidDocument(w http.ResponseWriter, r *http.Request) {
	did, ok := didParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid did"})
		return
	}
	issuer, err := s.identity.Get(r.Context(), did)
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := s.identity.GenerateDidDocument(issuer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", domain.DIDDocumentMediaType)
	writeBody(w, http.StatusOK, doc)
}

func (s *Server) getAuthorizedAccountsDocument(w http.ResponseWriter, r *http.Request) {
	did, ok := didParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid did"})
		return
	}
	issuer, err := s.identity.Get(r.Context(), did)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.identity.GenerateAuthorizedAccountsDocument(issuer))
}

type addAccountRequest struct {
	Address string `json:"address"`
	Network string `json:"network"`
}

func (s *Server) addAuthorizedAccount(w http.ResponseWriter, r *http.Request) {
	did, ok := didParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid did"})
		return
	}
	var req addAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account := domain.AuthorizedAccount{Address: req.Address, Network: req.Network}
	if err := s.identity.AddAuthorizedAccount(r.Context(), did, account); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type checkAccountResponse struct {
	Authorized bool `json:"authorized"`
}

func (s *Server) checkAuthorizedAccount(w http.ResponseWriter, r *http.Request) {
	did, ok := didParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid did"})
		return
	}
	account := domain.AuthorizedAccount{
		Address: urlParam(r, "address"),
		Network: urlParam(r, "network"),
	}
	authorized, err := s.identity.IsAccountAuthorized(r.Context(), did, account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkAccountResponse{Authorized: authorized})
}

type addTrustedSupplierRequest struct {
	SupplierDID string `json:"supplierDid"`
}

func (s *Server) addTrustedSupplier(w http.ResponseWriter, r *http.Request) {
	did, ok := didParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid did"})
		return
	}
	var req addTrustedSupplierRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.identity.AddTrustedSupplier(r.Context(), did, req.SupplierDID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
