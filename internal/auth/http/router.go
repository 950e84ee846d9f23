package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/cache"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"

	_ "github.com/aussiebroadwan/gatekeeper/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store
	cache cache.Cache

	AuthService *service.AuthService
	TOTPService *service.TOTPService

	// ExposeRegistrationErrors puts the underlying failure text into
	// registration error responses.
	ExposeRegistrationErrors bool
}

func NewRouter(buildVersion string, st store.Store, c cache.Cache, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		cache:        c,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTOTP()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Gatekeeper Authentication Service API
//	@version		0.1.0
//	@description	Password login with opaque session tokens and optional TOTP second factor.
//	@description
//	@description				Access tokens are random 64-byte values, valid for one hour, and revoked on logout.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/gatekeeper
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Opaque access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// resolveBearer maps an access token to its user and annotates the request
// logger with the user id.
func (r *Router) resolveBearer(ctx context.Context, token string) (context.Context, bool, error) {
	u, err := r.AuthService.ValidateAccessToken(ctx, token)
	if err != nil {
		return ctx, false, err
	}
	if u == nil {
		return ctx, false, nil
	}

	ctx = withUser(ctx, u)
	ctx = httpx.ContextWithUserID(ctx, u.ID)
	ctx = slogx.WithUserID(ctx, u.ID)
	return ctx, true, nil
}

func (r *Router) authenticated(h http.HandlerFunc) http.Handler {
	return httpx.Chain(h, httpx.AuthnMiddleware(r.resolveBearer))
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService:              r.AuthService,
		ExposeRegistrationErrors: r.ExposeRegistrationErrors,
	}

	r.Mux.HandleFunc("POST /v1/auth/register", h.HandleRegister)
	r.Mux.HandleFunc("POST /v1/auth/login", h.HandleLogin)
	r.Mux.Handle("POST /v1/auth/logout", r.authenticated(h.HandleLogout))
	r.Mux.Handle("GET /v1/auth/me", r.authenticated(h.HandleMe))
}

func (r *Router) registerTOTP() {
	h := &TOTPHandler{TOTPService: r.TOTPService}

	r.Mux.Handle("POST /v1/auth/totp/generate", r.authenticated(h.HandleGenerate))
	r.Mux.Handle("POST /v1/auth/totp/enable", r.authenticated(h.HandleEnable))
	r.Mux.Handle("POST /v1/auth/totp/disable", r.authenticated(h.HandleDisable))
	r.Mux.Handle("POST /v1/auth/totp/disableWithToken", r.authenticated(h.HandleDisableWithToken))
	r.Mux.Handle("POST /v1/auth/totp/disableWithBackupCode", r.authenticated(h.HandleDisableWithBackupCode))
	r.Mux.Handle("POST /v1/auth/totp/backup-codes", r.authenticated(h.HandleRegenerateBackupCodes))
	r.Mux.Handle("GET /v1/auth/totp/backup-codes", r.authenticated(h.HandleBackupCodesStatus))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.cache))
}
