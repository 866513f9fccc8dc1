package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-meeting/internal/meeting"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/observability"
	"github.com/ovaphlow/pitchfork/service-meeting/internal/session"
)

// BasePath prefixes every route.
const BasePath = "/meeting-api"

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs requests at debug level and counts them in metrics
// (metrics may be nil).
func LoggingMiddleware(logger *zap.SugaredLogger, metrics *observability.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			// ensure status is set
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			metrics.ObserveHTTP(r.Method, status)
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Clickjacking protection
			w.Header().Set("X-Frame-Options", "DENY")

			// Referrer policy
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")

			// Permissions policy: no camera, microphone or geolocation
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			// Content-Security-Policy restricted to self unless a handler set one
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}

			// HSTS, only over TLS; 30 days
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Deps are the collaborators mounted by RegisterRoutes.
type Deps struct {
	Meeting     *meeting.Handler
	Sessions    *session.Manager
	Metrics     *observability.Collector
	CORSOrigins []string
	Logger      *zap.SugaredLogger
}

// RegisterRoutes mounts HTTP handlers on the standard library's
// http.ServeMux using method patterns.
func RegisterRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	mux := http.NewServeMux()
	h := d.Meeting
	auth := session.Middleware(d.Sessions)
	protected := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, auth(fn))
	}

	// health
	mux.HandleFunc("GET "+BasePath+"/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Metrics != nil {
		mux.Handle("GET "+BasePath+"/metrics", d.Metrics.Handler())
	}
	mux.HandleFunc("GET "+BasePath+"/.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(d.Sessions.JWKS())
	})

	// accounts
	mux.HandleFunc("POST "+BasePath+"/users", h.Register)
	mux.HandleFunc("POST "+BasePath+"/login", h.Login)
	protected("GET "+BasePath+"/me", h.Me)
	protected("PUT "+BasePath+"/me/availability", h.UpdateAvailability)
	protected("GET "+BasePath+"/users/available", h.AvailableUsers)

	// friends
	protected("GET "+BasePath+"/friends", h.ListFriends)
	protected("GET "+BasePath+"/friend-requests", h.ListFriendRequests)
	protected("POST "+BasePath+"/friend-requests", h.SendFriendRequest)
	protected("POST "+BasePath+"/friend-requests/{requester}/accept", h.AcceptFriendRequest)
	protected("POST "+BasePath+"/friend-requests/{requester}/reject", h.RejectFriendRequest)

	// groups
	protected("GET "+BasePath+"/groups", h.ListGroups)
	protected("POST "+BasePath+"/groups", h.CreateGroup)
	protected("DELETE "+BasePath+"/groups/{group}", h.DeleteGroup)
	protected("GET "+BasePath+"/groups/{group}/members", h.GroupMembers)
	protected("POST "+BasePath+"/groups/{group}/members", h.InviteMember)
	protected("DELETE "+BasePath+"/groups/{group}/members/{user}", h.RemoveMember)

	// events
	protected("GET "+BasePath+"/events", h.ListEvents)
	protected("POST "+BasePath+"/events", h.AddEvent)
	protected("GET "+BasePath+"/events/{id}", h.GetEvent)
	protected("DELETE "+BasePath+"/events/{id}", h.CancelEvent)
	protected("PUT "+BasePath+"/events/{id}/participation", h.ToggleParticipation)
	protected("GET "+BasePath+"/events/{id}/roster", h.Roster)
	protected("GET "+BasePath+"/events/{id}/roster.csv", h.RosterCSV)

	// admin
	protected("GET "+BasePath+"/admin/table", h.AdminTable)
	protected("GET "+BasePath+"/admin/integrity", h.AdminIntegrity)
	protected("POST "+BasePath+"/admin/sweep", h.AdminSweep)

	c := cors.New(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Retry-After"},
	})

	// security headers, then CORS, then logging outermost
	return LoggingMiddleware(d.Logger, d.Metrics)(c.Handler(SecurityHeadersMiddleware()(mux)))
}
