package gate

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clowiza/backend/internal/monitoring"
	"github.com/clowiza/backend/internal/visitor"
)

// ConfigStore reads gate configurations. Implemented by the Supabase
// adapter; a nil config with a nil error means not found.
type ConfigStore interface {
	GetGateConfig(ctx context.Context, id string) (*Config, error)
}

// AuditLog appends decision records. Writes are best-effort telemetry: the
// handler never lets a failed or slow write affect the response.
type AuditLog interface {
	AppendLog(ctx context.Context, entry LogEntry) error
}

// LogEntry is one row of the append-only clowiza_logs table. The server
// timestamp is assigned by the store on insert.
type LogEntry struct {
	LinkID     string `json:"link_id"`
	ActionType string `json:"action_type"`
	IPAddress  string `json:"ip_address"`
	Country    string `json:"country"`
	UserAgent  string `json:"user_agent"`
}

// HandlerConfig tunes the edge handler. Zero values fall back to defaults.
type HandlerConfig struct {
	Policy        Policy
	LookupTimeout time.Duration
	AuditTimeout  time.Duration
}

// Handler is the guard's HTTP edge. Stateless: safe under arbitrary
// concurrency, no coordination between requests.
type Handler struct {
	store   ConfigStore
	audit   AuditLog
	policy  Policy
	lookupT time.Duration
	auditT  time.Duration
	metrics *monitoring.Metrics
	logger  *log.Logger
}

// NewHandler creates the edge handler.
func NewHandler(store ConfigStore, audit AuditLog, cfg HandlerConfig, m *monitoring.Metrics) *Handler {
	pol := cfg.Policy
	if pol.AllowedCountry == "" {
		pol = DefaultPolicy()
	}
	if cfg.LookupTimeout == 0 {
		cfg.LookupTimeout = 2 * time.Second
	}
	if cfg.AuditTimeout == 0 {
		cfg.AuditTimeout = 3 * time.Second
	}

	return &Handler{
		store:   store,
		audit:   audit,
		policy:  pol,
		lookupT: cfg.LookupTimeout,
		auditT:  cfg.AuditTimeout,
		metrics: m,
		logger:  log.New(log.Writer(), "[GUARD] ", log.LstdFlags),
	}
}

// ServeHTTP evaluates one visitor. The pipeline is linear: extract profile,
// look up the gate configuration, decide, append the audit entry, synthesize
// the script. Every failure degrades to a harmless no-op script with a 200 —
// the response is embedded as executable code on the merchant's page, so a
// 5xx or a broken script would break the whole page.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()

	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Printf("request=%s recovered from panic: %v", reqID, rec)
			h.metrics.RecordDegraded("panic")
			writeScriptHeaders(w.Header())
			io.WriteString(w, ScriptInternal)
		}
	}()

	if r.Method == http.MethodOptions {
		writeCORSHeaders(w.Header())
		w.WriteHeader(http.StatusOK)
		return
	}

	writeScriptHeaders(w.Header())

	id := strings.TrimPrefix(r.URL.Query().Get("id"), h.policy.IDPrefix)
	if id == "" {
		h.metrics.RecordDegraded("missing_id")
		io.WriteString(w, ScriptMissingID)
		return
	}

	profile := visitor.Extract(r.Header, h.policy.MobileTokens)

	// Fresh lookup on every request: a gate edit in the dashboard must take
	// effect immediately, so configurations are never cached.
	ctx, cancel := context.WithTimeout(r.Context(), h.lookupT)
	defer cancel()

	start := time.Now()
	cfg, err := h.store.GetGateConfig(ctx, id)
	h.metrics.ObserveLookup(time.Since(start))

	if err != nil {
		h.logger.Printf("request=%s gate=%s config lookup failed: %v", reqID, id, err)
		h.metrics.RecordDegraded("lookup_failed")
		io.WriteString(w, ScriptNotFound)
		return
	}
	if cfg == nil {
		h.metrics.RecordDegraded("not_found")
		io.WriteString(w, ScriptNotFound)
		return
	}

	decision := Decide(profile, *cfg, h.policy)
	h.metrics.RecordDecision(string(decision.Classification))

	h.appendAudit(reqID, cfg.ID, decision, profile)

	io.WriteString(w, Render(decision))
}

// appendAudit writes the decision record on a detached goroutine with its
// own deadline, so audit latency or failure can never delay or alter the
// response already computed.
func (h *Handler) appendAudit(reqID, linkID string, d Decision, p visitor.Profile) {
	entry := LogEntry{
		LinkID:     linkID,
		ActionType: string(d.Classification),
		IPAddress:  p.ClientIP,
		Country:    p.Country,
		UserAgent:  p.UserAgent,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.auditT)
		defer cancel()

		if err := h.audit.AppendLog(ctx, entry); err != nil {
			h.metrics.RecordAuditFailure()
			h.logger.Printf("request=%s gate=%s audit write failed: %v", reqID, linkID, err)
		}
	}()
}

func writeCORSHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
}

func writeScriptHeaders(h http.Header) {
	writeCORSHeaders(h)
	h.Set("Content-Type", "application/javascript")
	// Never cache a decision: geo and device can change between requests
	// even on the same link.
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
}
