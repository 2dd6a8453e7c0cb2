package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fides-dpp/trust-engine/internal/config"
	"github.com/fides-dpp/trust-engine/internal/core/ports"
	"github.com/fides-dpp/trust-engine/internal/health"
)

// Server holds the engine services behind the HTTP surface
type Server struct {
	cfg        *config.Configuration
	identity   ports.IdentityService
	credential ports.CredentialService
	// revocation is nil when the status list feature is disabled
	revocation ports.RevocationService
	resolution ports.ResolutionService
	dte        ports.DteService
	health     *health.Status
}

// NewServer creates the API server
func NewServer(cfg *config.Configuration, identity ports.IdentityService, credential ports.CredentialService, revocation ports.RevocationService, resolution ports.ResolutionService, dte ports.DteService, healthStatus *health.Status) *Server {
	return &Server{
		cfg:        cfg,
		identity:   identity,
		credential: credential,
		revocation: revocation,
		resolution: resolution,
		dte:        dte,
		health:     healthStatus,
	}
}

// Routes mounts every endpoint on the router
func (s *Server) Routes(mux *chi.Mux) {
	mux.Get("/status", s.getStatus)

	mux.Route("/v1", func(r chi.Router) {
		r.Route("/issuers", func(r chi.Router) {
			r.Post("/", s.registerIssuer)
			r.Route("/{did}", func(r chi.Router) {
				r.Get("/", s.getIssuer)
				r.Patch("/", s.updateIssuer)
				r.Post("/verify", s.verifyIssuer)
				r.Get("/did.json", s.getDidDocument)
				r.Get("/authorized-accounts.json", s.getAuthorizedAccountsDocument)
				r.Post("/accounts", s.addAuthorizedAccount)
				r.Get("/accounts/{network}/{address}", s.checkAuthorizedAccount)
				r.Post("/trusted-suppliers", s.addTrustedSupplier)
			})
		})
		r.Route("/credentials", func(r chi.Router) {
			r.Post("/", s.issueCredential)
			r.Post("/verify", s.verifyCredential)
			r.Post("/revoke", s.revokeCredential)
			r.Get("/status/{did}", s.getStatusList)
		})
		r.Post("/dte", s.submitDte)
		r.Get("/products/{productId}/events", s.listProductEvents)
	})
}

// didParam extracts the DID path parameter. Clients must percent encode the
// DID, so characters that are themselves percent encoded inside a did:web
// identifier (a port colon) arrive double encoded; one level is removed by
// the HTTP stack and the remaining one here.
func didParam(r *http.Request) (string, bool) {
	raw := urlParam(r, "did")
	return raw, strings.HasPrefix(raw, "did:")
}

func urlParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
