package accesskit

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// Middleware provides HTTP middleware for role, permission and level checks.
type Middleware struct {
	service      *Service
	logger       zerolog.Logger
	getUserID    func(*http.Request) (int64, bool)
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := accesskit.NewMiddleware(service,
//	    accesskit.WithUserIDExtractor(func(r *http.Request) (int64, bool) {
//	        return session.UserID(r)
//	    }),
//	)
func NewMiddleware(service *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		service:      service,
		logger:       service.Logger(),
		getUserID:    defaultGetUserID,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithUserIDExtractor sets a custom function to extract user ID from request.
func WithUserIDExtractor(fn func(*http.Request) (int64, bool)) MiddlewareOption {
	return func(m *Middleware) {
		m.getUserID = fn
	}
}

// WithErrorHandler sets a custom error handler for middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

func defaultGetUserID(r *http.Request) (int64, bool) {
	return GetUserID(r.Context())
}

// defaultErrorHandler answers 403 for denials, 401 when the user is
// unknown and 500 otherwise.
func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	var e *Error
	switch {
	case IsDenied(err) && errors.As(err, &e):
		http.Error(w, e.Message, http.StatusForbidden)
	case errors.Is(err, ErrNoUserID):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// authorizer returns the Authorizer already in the request context, or
// builds one for the request's user and stores it in the context.
func (m *Middleware) authorizer(r *http.Request) (*Authorizer, *http.Request, error) {
	if auth := GetAuthorizer(r.Context()); auth != nil {
		return auth, r, nil
	}
	userID, ok := m.getUserID(r)
	if !ok {
		return nil, r, ErrNoUserID
	}

	rc := GetRequestContext(r.Context())
	logger := m.logger.With().Str("request_id", rc.RequestID).Logger()
	auth := m.service.ForID(userID, WithLogger(logger))
	return auth, r.WithContext(WithAuthorizer(r.Context(), auth)), nil
}

// guard builds middleware around a check. check returns the denial error
// when the user fails it.
func (m *Middleware) guard(check func(r *http.Request, auth *Authorizer) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth, r, err := m.authorizer(r)
			if err == nil {
				err = check(r, auth)
			}
			if err != nil {
				m.logFailure(r, err)
				m.errorHandler(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) logFailure(r *http.Request, err error) {
	rc := GetRequestContext(r.Context())
	event := m.logger.Warn()
	if !IsDenied(err) && !errors.Is(err, ErrNoUserID) {
		event = m.logger.Error()
	}
	event.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("request_id", rc.RequestID).
		Str("ip_address", rc.IPAddress).
		Msg("request not authorized")
}

// RequireRole creates middleware that requires one of the roles in ref,
// e.g. "admin" or "admin|moderator".
//
// Example:
//
//	mux.Handle("/admin", mw.RequireRole("admin")(adminHandler))
func (m *Middleware) RequireRole(ref string) func(http.Handler) http.Handler {
	return m.requireRole(ref, false)
}

// RequireAllRoles creates middleware that requires every role in ref.
func (m *Middleware) RequireAllRoles(ref string) func(http.Handler) http.Handler {
	return m.requireRole(ref, true)
}

func (m *Middleware) requireRole(ref string, all bool) func(http.Handler) http.Handler {
	return m.guard(func(r *http.Request, auth *Authorizer) error {
		ok, err := auth.Is(r.Context(), ref, all)
		if err != nil {
			return err
		}
		if !ok {
			return roleDenied(ref).WithUser(auth.UserID())
		}
		return nil
	})
}

// RequirePermission creates middleware that requires one of the
// permissions in ref.
//
// Example:
//
//	mux.Handle("POST /articles", mw.RequirePermission("articles.create")(createHandler))
func (m *Middleware) RequirePermission(ref string) func(http.Handler) http.Handler {
	return m.requirePermission(ref, false)
}

// RequireAllPermissions creates middleware that requires every permission in ref.
func (m *Middleware) RequireAllPermissions(ref string) func(http.Handler) http.Handler {
	return m.requirePermission(ref, true)
}

func (m *Middleware) requirePermission(ref string, all bool) func(http.Handler) http.Handler {
	return m.guard(func(r *http.Request, auth *Authorizer) error {
		ok, err := auth.Can(r.Context(), ref, all)
		if err != nil {
			return err
		}
		if !ok {
			return permissionDenied(ref).WithUser(auth.UserID())
		}
		return nil
	})
}

// RequireLevel creates middleware that requires the user's level to be at
// least level.
//
// Example:
//
//	mux.Handle("/reports", mw.RequireLevel(5)(reportsHandler))
func (m *Middleware) RequireLevel(level int) func(http.Handler) http.Handler {
	return m.guard(func(r *http.Request, auth *Authorizer) error {
		got, err := auth.Level(r.Context())
		if err != nil {
			return err
		}
		if got < level {
			return levelDenied(level).WithUser(auth.UserID())
		}
		return nil
	})
}

// LoadAuthorizer creates middleware that loads the user's Authorizer into
// context. Use this when checks happen in the handler rather than the
// middleware. Requests without a user pass through unchanged.
//
// Example:
//
//	func dashboardHandler(w http.ResponseWriter, r *http.Request) {
//	    auth := accesskit.FromContext(r.Context())
//	    if ok, _ := auth.Is(r.Context(), "admin", false); ok {
//	        // Show admin features
//	    }
//	}
func (m *Middleware) LoadAuthorizer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, r, _ = m.authorizer(r)
			next.ServeHTTP(w, r)
		})
	}
}

// InjectRequestContext creates middleware that copies the request ID,
// client IP and user agent into the context for log correlation.
//
// Example:
//
//	handler = mw.InjectRequestContext()(handler)
func (m *Middleware) InjectRequestContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.Header.Get("X-Real-IP")
			}
			if ip == "" {
				ip = r.RemoteAddr
			}

			ctx := WithRequestContext(r.Context(), RequestContext{
				RequestID: r.Header.Get("X-Request-ID"),
				IPAddress: ip,
				UserAgent: r.UserAgent(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
