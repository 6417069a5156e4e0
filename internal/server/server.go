package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	connectcors "connectrpc.com/cors"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/logicore/internal/auth"
	httpmiddleware "github.com/wolfeidau/logicore/internal/http"
	"github.com/wolfeidau/logicore/internal/logger"
)

// Server aggregates the services and exposes them as an HTTP API behind the
// authentication gateway.
type Server struct {
	Auth           *AuthService
	Identity       *IdentityService
	SSO            *SSOService
	SSOSettings    *SSOSettingsService
	AccessRequests *AccessRequestService
	Organizations  *OrganizationService
	Members        *MemberService
	Documents      *DocumentService

	gateway *auth.Gateway
}

// NewServer creates the server from its services and the gateway fronting
// them.
func NewServer(gateway *auth.Gateway, authService *AuthService, identity *IdentityService, sso *SSOService, ssoSettings *SSOSettingsService, accessRequests *AccessRequestService, orgs *OrganizationService, members *MemberService, documents *DocumentService) *Server {
	return &Server{
		Auth:           authService,
		Identity:       identity,
		SSO:            sso,
		SSOSettings:    ssoSettings,
		AccessRequests: accessRequests,
		Organizations:  orgs,
		Members:        members,
		Documents:      documents,
		gateway:        gateway,
	}
}

// Handler returns the HTTP handler: all routes wired, client IP capture and
// the authentication gateway wrapped around everything.
func (s *Server) Handler(log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// login and token endpoints
	mux.HandleFunc("POST /api/auth/login", handleJSON(s.Auth.Login))
	mux.HandleFunc("POST /api/auth/validate", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, connect.NewError(connect.CodeInvalidArgument, errors.New("malformed request body")))
			return
		}
		resp, err := s.Auth.ValidateToken(r.Context(), body.Token)
		respond(w, resp, err)
	})
	mux.HandleFunc("POST /api/auth/switch-org", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrgID uuid.UUID `json:"org_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, connect.NewError(connect.CodeInvalidArgument, errors.New("malformed request body")))
			return
		}
		resp, err := s.Auth.SwitchOrganization(r.Context(), body.OrgID)
		respond(w, resp, err)
	})

	// sso flows, both pre-auth
	mux.HandleFunc("POST /api/auth/sso/resolve", handleJSON(s.SSO.ResolveProvider))
	mux.HandleFunc("POST /api/auth/sso/login", handleJSON(s.SSO.LoginWithSSO))

	// invitations
	mux.HandleFunc("POST /api/auth/invitations/accept", handleJSON(s.Identity.AcceptInvitation))
	mux.HandleFunc("POST /api/invitations", handleJSON(s.Identity.InviteUser))

	// organizations
	mux.HandleFunc("GET /api/organizations/mine", func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.Organizations.ListMine(r.Context())
		respond(w, resp, err)
	})
	mux.HandleFunc("PUT /api/organization", handleJSON(s.Organizations.Update))
	mux.HandleFunc("GET /api/organizations/by-slug/{slug}", func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.AccessRequests.GetOrganizationBySlug(r.Context(), r.PathValue("slug"))
		respond(w, resp, err)
	})

	// access request workflow
	mux.HandleFunc("POST /api/access-requests", handleJSON(s.AccessRequests.Create))
	mux.HandleFunc("GET /api/access-requests", func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.AccessRequests.List(r.Context(), r.URL.Query().Get("status"))
		respond(w, resp, err)
	})
	mux.HandleFunc("POST /api/access-requests/approve", handleJSON(s.AccessRequests.Approve))
	mux.HandleFunc("POST /api/access-requests/decline", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RequestID uuid.UUID `json:"request_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, connect.NewError(connect.CodeInvalidArgument, errors.New("malformed request body")))
			return
		}
		respondEmpty(w, s.AccessRequests.Decline(r.Context(), body.RequestID))
	})

	// members
	mux.HandleFunc("GET /api/members", func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.Members.List(r.Context())
		respond(w, resp, err)
	})
	mux.HandleFunc("POST /api/members/remove", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserID uuid.UUID `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, connect.NewError(connect.CodeInvalidArgument, errors.New("malformed request body")))
			return
		}
		respondEmpty(w, s.Members.Remove(r.Context(), body.UserID))
	})
	mux.HandleFunc("POST /api/members/role", func(w http.ResponseWriter, r *http.Request) {
		var body SetRoleRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, connect.NewError(connect.CodeInvalidArgument, errors.New("malformed request body")))
			return
		}
		respondEmpty(w, s.Members.SetRole(r.Context(), &body))
	})
	mux.HandleFunc("POST /api/members/transfer-admin", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserID uuid.UUID `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, connect.NewError(connect.CodeInvalidArgument, errors.New("malformed request body")))
			return
		}
		respondEmpty(w, s.Members.TransferAdmin(r.Context(), body.UserID))
	})

	// sso settings, admin only
	mux.HandleFunc("GET /api/sso-settings", func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.SSOSettings.List(r.Context())
		respond(w, resp, err)
	})
	mux.HandleFunc("GET /api/sso-settings/{provider}", func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.SSOSettings.Get(r.Context(), r.PathValue("provider"))
		respond(w, resp, err)
	})
	mux.HandleFunc("PUT /api/sso-settings", handleJSON(s.SSOSettings.Upsert))
	mux.HandleFunc("DELETE /api/sso-settings/{provider}", func(w http.ResponseWriter, r *http.Request) {
		respondEmpty(w, s.SSOSettings.Delete(r.Context(), r.PathValue("provider")))
	})

	// documents, the tenant scoped resource
	mux.HandleFunc("POST /api/documents", handleJSON(s.Documents.Create))
	mux.HandleFunc("GET /api/documents", func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.Documents.List(r.Context())
		respond(w, resp, err)
	})
	mux.HandleFunc("GET /api/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		documentID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, connect.NewError(connect.CodeInvalidArgument, errors.New("malformed document id")))
			return
		}
		resp, err := s.Documents.Get(r.Context(), documentID)
		respond(w, resp, err)
	})

	var handler http.Handler = mux
	handler = s.gateway.Middleware()(handler)
	handler = httpmiddleware.ClientIPMiddleware()(handler)
	handler = logger.Requests(log)(handler)

	return handler
}

// WithCORS wraps the handler with the CORS policy for browser clients.
func WithCORS(h http.Handler, allowedOrigins []string) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   append(connectcors.AllowedMethods(), http.MethodPut, http.MethodDelete),
		AllowedHeaders:   append(connectcors.AllowedHeaders(), auth.IdentityTokenHeader, auth.OrgHintHeader),
		ExposedHeaders:   connectcors.ExposedHeaders(),
		AllowCredentials: true,
	})
	return middleware.Handler(h)
}

// handleJSON adapts a service method taking a request struct into an HTTP
// handler that decodes the body and encodes the response.
func handleJSON[Req any, Resp any](fn func(ctx context.Context, req *Req) (Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, connect.NewError(connect.CodeInvalidArgument, errors.New("malformed request body")))
			return
		}

		resp, err := fn(r.Context(), &req)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// respond writes the result of a service call that returned a value.
func respond[Resp any](w http.ResponseWriter, resp Resp, err error) {
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// respondEmpty writes the result of a service call with no response body.
func respondEmpty(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps connect error codes onto HTTP statuses. Internal errors
// carry wrapped store and driver detail, so their message never reaches the
// response body; the request log has the full error.
func writeError(w http.ResponseWriter, err error) {
	code := connect.CodeOf(err)

	message := "internal error"
	var cerr *connect.Error
	if errors.As(err, &cerr) && code != connect.CodeInternal && code != connect.CodeUnknown {
		message = cerr.Message()
	}

	if code == connect.CodeInternal || code == connect.CodeUnknown {
		log.Error().Err(err).Msg("internal error")
	}

	writeJSON(w, httpStatus(code), map[string]string{"error": message})
}

func httpStatus(code connect.Code) int {
	switch code {
	case connect.CodeInvalidArgument:
		return http.StatusBadRequest
	case connect.CodeUnauthenticated:
		return http.StatusUnauthorized
	case connect.CodePermissionDenied:
		return http.StatusForbidden
	case connect.CodeNotFound:
		return http.StatusNotFound
	case connect.CodeAlreadyExists:
		return http.StatusConflict
	case connect.CodeFailedPrecondition:
		return http.StatusPreconditionFailed
	case connect.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
