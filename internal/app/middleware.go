package app

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
	"golang.org/x/crypto/bcrypt"

	"github.com/backoffice-console/backoffice/internal/observability"
	"github.com/backoffice-console/backoffice/internal/shared"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
}

// MiddlewareStack returns the console chain in order: request identity, session,
// recovery, timeout, security headers, compression, rate limit, admin gate, CSRF and
// finally request metrics.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}

	chain := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		LoadSession(cfg.SessionManager, cfg.Logger),
		middleware.Recoverer,
		middleware.Timeout(timeout),
		SecureHeaders(cfg.Config.IsProduction(), cfg.Logger),
		middleware.Compress(5),
		httprate.Limit(300, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
	}
	if cfg.Config.AdminGateEnabled() {
		chain = append(chain, AdminGate(cfg.Config.AdminUser, cfg.Config.AdminPasswordHash, cfg.CSRFManager, cfg.Logger))
	}
	chain = append(chain, CSRFProtect(cfg.CSRFManager, cfg.Logger))
	if cfg.Metrics != nil {
		chain = append(chain, cfg.Metrics.Middleware)
	}
	return chain
}

// LoadSession attaches the visitor session to the request context and saves it just
// before the response header goes out, so redirects carry the updated cookie.
func LoadSession(sm *shared.SessionManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sm.Load(r.Context(), r)
			if err != nil {
				logger.ErrorContext(r.Context(), "load session", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			r = r.WithContext(shared.ContextWithSession(r.Context(), sess))
			sw := &sessionWriter{ResponseWriter: w, commit: func() {
				if err := sm.Commit(r.Context(), w, sess); err != nil {
					logger.ErrorContext(r.Context(), "commit session", slog.Any("error", err))
				}
			}}
			next.ServeHTTP(sw, r)
			// Handlers that write nothing still persist their changes.
			sw.flushSession()
		})
	}
}

type sessionWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (w *sessionWriter) flushSession() {
	if !w.committed {
		w.committed = true
		w.commit()
	}
}

func (w *sessionWriter) WriteHeader(status int) {
	w.flushSession()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.flushSession()
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// SecureHeaders applies the console's security header policy.
func SecureHeaders(production bool, logger *slog.Logger) func(http.Handler) http.Handler {
	policy := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' https: data:",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := policy.Process(w, r); err != nil {
				logger.Warn("secure headers blocked request", slog.String("path", r.URL.Path), slog.Any("error", err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CSRFProtect rejects unsafe requests without a valid session token. The header is
// checked before the form so multipart uploads are not parsed twice.
func CSRFProtect(csrf *shared.CSRFManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			token := r.Header.Get(shared.CSRFHeader)
			if token == "" {
				token = r.PostFormValue(shared.CSRFFormField)
			}
			if err := csrf.VerifyToken(r.Context(), shared.SessionFromContext(r.Context()), token); err != nil {
				logger.Warn("csrf validation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminGate requires HTTP basic auth matching user and a bcrypt password hash. A
// session that already passed is not challenged again. Passing the gate moves the
// session to a new id and rotates its CSRF token.
func AdminGate(user, passwordHash string, csrf *shared.CSRFManager, logger *slog.Logger) func(http.Handler) http.Handler {
	hash := []byte(passwordHash)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess != nil && sess.Admin() == user {
				next.ServeHTTP(w, r)
				return
			}
			name, password, ok := r.BasicAuth()
			if !ok || subtle.ConstantTimeCompare([]byte(name), []byte(user)) != 1 ||
				bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
				if ok {
					logger.Warn("admin gate rejected credentials", slog.String("user", name))
				}
				w.Header().Set("WWW-Authenticate", `Basic realm="backoffice", charset="UTF-8"`)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if sess != nil {
				sess.Renew()
				csrf.RotateToken(sess)
				sess.SetAdmin(name)
			}
			next.ServeHTTP(w, r)
		})
	}
}
