// Package exprserver is a thin HTTP façade over the expression evaluator:
// a chi router, one google/uuid-stamped request id per call, and JSON
// request/response bodies. It always compiles then evaluates (never the
// cheaper Interpret path) since a compiled Instruction is what every
// request gets billed against the configured evaluation limits.
package exprserver

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dekarrin/exprlang/internal/config"
	"github.com/dekarrin/exprlang/internal/exprstore"
)

type requestIDKey int

const requestIDContextKey requestIDKey = 0

// PathPrefix is the path every route in this package is mounted under.
const PathPrefix = "/api/v1"

// Server holds the dependencies every endpoint needs and exposes a
// http.Handler wiring them into a chi router.
type Server struct {
	Config config.Config

	// Store, if non-nil, backs every /eval call's namespace as a fallback
	// for names the request's own Vars don't resolve, and backs the
	// /cache admin routes. A Server with a nil Store still serves /eval
	// against request-supplied variables alone.
	Store *exprstore.Store

	// AuthTokenHash, if set, requires a valid bearer token signed with
	// AuthSecret on the /cache admin routes (see RequireBearerToken); if it
	// is empty those routes are open whatever AuthSecret holds. /eval
	// stays open regardless, since it never exposes persisted state.
	AuthSecret    []byte
	AuthTokenHash string

	// UnauthDelay is slept before any 401/403/500 result an endpoint
	// returns and before the bearer-token check's 401, to deprioritize
	// processing of unauthorized or failing requests. The 500 written
	// after a recovered panic is not delayed.
	UnauthDelay time.Duration

	router chi.Router
}

// NewServer builds a Server ready to serve requests. cfg's Limits govern
// every request's parse/compile budget. store may be nil.
func NewServer(cfg config.Config, store *exprstore.Store) *Server {
	s := &Server{Config: cfg, Store: store, UnauthDelay: 200 * time.Millisecond}
	s.router = s.buildRouter()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.router.ServeHTTP(w, req)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)

	r.Route(PathPrefix, func(r chi.Router) {
		r.Post("/eval", s.handleEval())

		r.Group(func(r chi.Router) {
			r.Use(s.cacheAuthMiddleware)
			r.Post("/cache", s.handleCacheSet())
			r.Delete("/cache", s.handleCacheClear())
		})
	})

	return r
}

// cacheAuthMiddleware gates the /cache admin routes behind a bearer token
// whenever AuthTokenHash is set. The check happens per request rather than
// at router-build time so a caller may configure auth on a Server after
// constructing it.
func (s *Server) cacheAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if s.AuthTokenHash == "" {
			next.ServeHTTP(w, req)
			return
		}
		RequireBearerToken(s.AuthSecret, s.AuthTokenHash, s.UnauthDelay, next).ServeHTTP(w, req)
	})
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := uuid.New().String()
		ctx := context.WithValue(req.Context(), requestIDContextKey, id)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// endpointFunc is a handler that returns a result instead of writing to
// the ResponseWriter directly, so logging and response delays stay in one
// place.
type endpointFunc func(req *http.Request) result

func (s *Server) endpoint(ep endpointFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		defer s.recoverTo500(w, req)

		r := ep(req)
		requestID := requestIDFrom(req.Context())

		if r.isErr {
			logRequest("ERROR", req, r.status, r.internalMsg)
		} else {
			logRequest("INFO", req, r.status, r.internalMsg)
		}

		if r.status == http.StatusUnauthorized || r.status == http.StatusForbidden || r.status == http.StatusInternalServerError {
			time.Sleep(s.UnauthDelay)
		}

		r.write(w, requestID)
	}
}

func (s *Server) recoverTo500(w http.ResponseWriter, req *http.Request) {
	if p := recover(); p != nil {
		internalError("panic: %v").write(w, requestIDFrom(req.Context()))
		log.Printf("ERROR %s %s: panic: %v", req.Method, req.URL.Path, p)
	}
}

func logRequest(level string, req *http.Request, status int, msg string) {
	remoteIP := strings.SplitN(req.RemoteAddr, ":", 2)[0]
	log.Printf("%-5s %s %s %s: HTTP-%d %s", level, remoteIP, req.Method, req.URL.Path, status, msg)
}
