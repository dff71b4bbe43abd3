package web

import (
	"net/http"
	"time"

	"classbook/internal/adapters/email"
	"classbook/internal/adapters/http/middleware"
	"classbook/internal/adapters/http/perf"
	accountStore "classbook/internal/adapters/storage/account"
	auditStore "classbook/internal/adapters/storage/audit"
	recordStore "classbook/internal/adapters/storage/record"
	rosterStore "classbook/internal/adapters/storage/roster"
	domainAccount "classbook/internal/domain/account"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore accountStore.Store
	RosterStore  rosterStore.Store
	RecordStore  recordStore.Store
	AuditStore   auditStore.Store
}

// Options carries the host settings applied by NewMux.
type Options struct {
	CSRFKey       []byte // 32 bytes
	Production    bool
	SlowRequestMs int
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

// Global live session registry (set by NewMux)
var live *Registry

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// Global email sender instance (set by SetEmailSender)
var emailSender email.Sender

// Email configuration
var emailFromAddress string

// now is the clock used for records and audit events.
var now = time.Now

// SetEmailSender sets the global email sender for absence notices.
// An empty from uses the sender's default address.
func SetEmailSender(sender email.Sender, from string) {
	emailSender = sender
	emailFromAddress = from
}

// NewMux wires HTTP handlers for the app.
func NewMux(s *Stores, collector *perf.Collector, opts Options) http.Handler {
	stores = s
	perfCollector = collector
	sessions = middleware.NewSessionStore()
	live = NewRegistry(LiveSessionTTL)
	middleware.SecureCookies = opts.Production

	mux := http.NewServeMux()
	registerRoutes(mux)

	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Apply middleware: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRFKey, opts.Production),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(collector, opts.SlowRequestMs),
	)
}

// registerRoutes binds every API route. Each handler reports its mux
// pattern to the timing middleware before any role check runs.
func registerRoutes(mux *http.ServeMux) {
	handle := func(pattern string, h http.HandlerFunc, mws ...func(http.Handler) http.Handler) {
		inner := middleware.Chain(h, mws...)
		mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			middleware.MarkRoute(r)
			inner.ServeHTTP(w, r)
		}))
	}

	teach := middleware.RequireRole(domainAccount.RoleAdmin, domainAccount.RoleInstructor)
	admin := middleware.RequireRole(domainAccount.RoleAdmin)

	handle("POST /api/login", handleLogin)
	handle("POST /api/logout", handleLogout)
	handle("GET /api/csrf", handleCSRFToken)
	handle("GET /api/me", handleMe, teach)

	handle("GET /api/classes/{classID}/roster", handleGetRoster, teach)
	handle("POST /api/classes/{classID}/roster/import", handleImportRoster, admin)
	handle("GET /api/classes/{classID}/records", handleListRecords, teach)
	handle("GET /api/classes/{classID}/records/{recordID}", handleGetRecord, teach)

	handle("POST /api/sessions", handleOpenSession, teach)
	handle("GET /api/sessions/{handle}", handleGetSession, teach)
	handle("DELETE /api/sessions/{handle}", handleDiscardSession, teach)
	handle("PUT /api/sessions/{handle}/metadata", handleStartEditing, teach)
	handle("POST /api/sessions/{handle}/setup", handleReturnToSetup, teach)
	handle("PUT /api/sessions/{handle}/entries/{memberID}", handleSetEntry, teach)
	handle("POST /api/sessions/{handle}/apply-all", handleApplyToAll, teach)
	handle("PUT /api/sessions/{handle}/feedback/{memberID}", handleSetFeedback, teach)
	handle("POST /api/sessions/{handle}/confirm", handleOpenConfirm, teach)
	handle("DELETE /api/sessions/{handle}/confirm", handleCancelConfirm, teach)
	handle("POST /api/sessions/{handle}/submit", handleSubmit, teach)
	handle("GET /api/sessions/{handle}/watch", handleWatchSession, teach)

	handle("GET /api/admin/perf", handleAdminPerf, admin)
	handle("GET /api/admin/audit", handleAdminAudit, admin)
	handle("GET /api/admin/accounts", handleListAccounts, admin)
	handle("POST /api/admin/accounts", handleCreateAccount, admin)
}
