package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"storefront/backend/internal/apperr"
	"storefront/backend/internal/domain"
	"storefront/backend/internal/logger"
	"storefront/backend/internal/service"
)

const maxBodyBytes = 1 << 20

type Options struct {
	AllowedOrigin string
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
}

type API struct {
	service      *service.Service
	auth         *AuthManager
	log          *logger.Logger
	opts         Options
	loginLimiter *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, log *logger.Logger, opts Options) *API {
	if log == nil {
		log = logger.Nop()
	}
	if strings.TrimSpace(opts.AllowedOrigin) == "" {
		opts.AllowedOrigin = "*"
	}
	return &API{
		service:      svc,
		auth:         auth,
		log:          log,
		opts:         opts,
		loginLimiter: newAttemptLimiter(5, time.Minute),
	}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		a.requestLogger,
		middleware.Recoverer,
		a.securityHeaders,
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.writeError(w, r, apperr.New(apperr.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		a.writeError(w, r, apperr.New(apperr.CodeMethodNotAllowed, "method not allowed"))
	})

	r.Get("/healthz", a.handleHealth)
	if a.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.opts.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)

		r.Get("/products", a.requireAuth(a.handleProducts, "cashier", "admin"))
		r.Post("/sales", a.requireAuth(a.handleSale, "cashier", "admin"))
		r.Get("/orders/{id}", a.requireAuth(a.handleOrder, "cashier", "admin"))

		r.Get("/users/cashiers", a.requireAuth(a.handleListCashiers, "admin"))
		r.Post("/users/cashiers", a.requireAuth(a.handleCreateCashier, "admin"))
	})

	return r
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			a.writeError(w, r, apperr.New(apperr.CodeUnauthorized, "missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			a.writeError(w, r, apperr.New(apperr.CodeForbidden, "forbidden role"))
			return
		}

		ctx := service.WithActor(r.Context(), actor)
		ctx = a.log.WithActor(ctx, actor.Username)
		next(w, r.WithContext(ctx))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		a.writeError(w, r, apperr.New(apperr.CodeRateLimit, "too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListProducts(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	result, err := a.service.Checkout(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (a *API) handleOrder(w http.ResponseWriter, r *http.Request) {
	order, err := a.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (a *API) handleListCashiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"cashiers": a.auth.ListCashiers(r.Context())})
}

func (a *API) handleCreateCashier(w http.ResponseWriter, r *http.Request) {
	var req domain.CashierCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	cashier, err := a.auth.CreateCashier(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"cashier": cashier})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Wrap(apperr.CodeValidation, err, "request body too large")
		}
		return apperr.Wrap(apperr.CodeValidation, err, "invalid request body").WithForm(err.Error())
	}
	return nil
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Form    []string          `json:"form,omitempty"`
	Details any               `json:"details,omitempty"`
}

// writeError renders err as an error envelope. Errors that do not carry an
// apperr code become a generic internal error.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	typed := apperr.As(err)
	if typed == nil {
		typed = apperr.Wrap(apperr.CodeInternal, err, "unexpected error")
	}

	meta := apperr.MetadataFor(typed.Code())
	body := errorBody{
		Code:    string(typed.Code()),
		Message: meta.PublicMessage,
	}

	if meta.HTTPStatus >= http.StatusInternalServerError {
		a.log.Error(r.Context(), "request failed", err)
	} else {
		if msg := typed.Message(); msg != "" {
			body.Message = msg
		}
		body.Fields = typed.Fields()
		body.Form = typed.Form()
	}

	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}

	writeJSON(w, meta.HTTPStatus, map[string]any{"error": body})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
