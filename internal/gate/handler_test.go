package gate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clowiza/backend/internal/monitoring"
)

// promauto registers into the default registry, so the package shares one
// Metrics instance across tests.
var testMetrics = monitoring.NewMetrics()

const (
	offerPage = "https://offers.example.com/promo"
	safePage  = "https://blog.example.com/recipes"
)

type fakeStore struct {
	mu        sync.Mutex
	cfg       *Config
	lookupErr error
	auditErr  error
	entries   []LogEntry
}

func (f *fakeStore) GetGateConfig(ctx context.Context, id string) (*Config, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if f.cfg == nil || f.cfg.ID != id {
		return nil, nil
	}
	cfg := *f.cfg
	return &cfg, nil
}

func (f *fakeStore) AppendLog(ctx context.Context, entry LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.auditErr != nil {
		return f.auditErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeStore) loggedEntries() []LogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]LogEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

type panicStore struct{ fakeStore }

func (p *panicStore) GetGateConfig(ctx context.Context, id string) (*Config, error) {
	panic("boom")
}

func newTestHandler(store *fakeStore) *Handler {
	return NewHandler(store, store, HandlerConfig{Policy: DefaultPolicy()}, testMetrics)
}

func activeStore() *fakeStore {
	return &fakeStore{cfg: &Config{
		ID:        "link-1",
		OfferPage: offerPage,
		SafePage:  safePage,
		IsActive:  true,
	}}
}

func serve(t *testing.T, h *Handler, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// requireLogged waits for the detached audit write to land.
func requireLogged(t *testing.T, store *fakeStore, classification Classification) LogEntry {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(store.loggedEntries()) == 1
	}, time.Second, 5*time.Millisecond, "expected one audit entry")

	entry := store.loggedEntries()[0]
	require.Equal(t, string(classification), entry.ActionType)
	return entry
}

func TestGuardAllowsLocalMobileVisitor(t *testing.T) {
	store := activeStore()
	h := newTestHandler(store)

	rec := serve(t, h, "/clowiza-guard?id=kwzw_link-1", map[string]string{
		"CF-IPCountry":     "AO",
		"CF-Connecting-IP": "197.149.0.9",
		"User-Agent":       "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/javascript", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "location")
	assert.NotContains(t, rec.Body.String(), "innerHTML")

	entry := requireLogged(t, store, ClassAllow)
	assert.Equal(t, "link-1", entry.LinkID)
	assert.Equal(t, "197.149.0.9", entry.IPAddress)
	assert.Equal(t, "AO", entry.Country)
}

func TestGuardBlocksForeignVisitor(t *testing.T) {
	store := activeStore()
	h := newTestHandler(store)

	rec := serve(t, h, "/clowiza-guard?id=kwzw_link-1", map[string]string{
		"CF-IPCountry": "US",
		"User-Agent":   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `window.location.replace("`+safePage+`")`)

	requireLogged(t, store, ClassBlockGeo)
}

func TestGuardBlocksDesktopVisitor(t *testing.T) {
	store := activeStore()
	h := newTestHandler(store)

	rec := serve(t, h, "/clowiza-guard?id=kwzw_link-1", map[string]string{
		"CF-IPCountry": "AO",
		"User-Agent":   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0",
	})

	assert.Contains(t, rec.Body.String(), safePage)
	requireLogged(t, store, ClassBlockDevice)
}

func TestGuardInactiveGateAllowsEveryone(t *testing.T) {
	store := activeStore()
	store.cfg.IsActive = false
	h := newTestHandler(store)

	rec := serve(t, h, "/clowiza-guard?id=kwzw_link-1", map[string]string{
		"CF-IPCountry": "US",
		"User-Agent":   "curl/8.0",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "location")

	requireLogged(t, store, ClassAllow)
}

func TestGuardMissingIDIsNoop(t *testing.T) {
	store := activeStore()
	h := newTestHandler(store)

	rec := serve(t, h, "/clowiza-guard", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ScriptMissingID, rec.Body.String())
	assert.Empty(t, store.loggedEntries(), "no audit entry without a lookup")
}

func TestGuardUnknownIDIsNoop(t *testing.T) {
	store := activeStore()
	h := newTestHandler(store)

	rec := serve(t, h, "/clowiza-guard?id=kwzw_no-such-link", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ScriptNotFound, rec.Body.String())
	assert.Empty(t, store.loggedEntries())
}

func TestGuardLookupFailureFailsOpen(t *testing.T) {
	store := activeStore()
	store.lookupErr = errors.New("connection refused")
	h := newTestHandler(store)

	rec := serve(t, h, "/clowiza-guard?id=kwzw_link-1", map[string]string{
		"CF-IPCountry": "US",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ScriptNotFound, rec.Body.String())
	assert.Empty(t, store.loggedEntries())
}

func TestGuardAuditFailureDoesNotAffectResponse(t *testing.T) {
	store := activeStore()
	store.auditErr = errors.New("insert failed")
	h := newTestHandler(store)

	rec := serve(t, h, "/clowiza-guard?id=kwzw_link-1", map[string]string{
		"CF-IPCountry": "AO",
		"User-Agent":   "Mozilla/5.0 (Linux; Android 14; Pixel 8)",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "location")
}

func TestGuardRecoversFromPanic(t *testing.T) {
	store := &panicStore{}
	h := NewHandler(store, store, HandlerConfig{Policy: DefaultPolicy()}, testMetrics)

	rec := serve(t, h, "/clowiza-guard?id=kwzw_link-1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ScriptInternal, rec.Body.String())
}

func TestGuardPreflight(t *testing.T) {
	h := newTestHandler(activeStore())

	req := httptest.NewRequest(http.MethodOptions, "/clowiza-guard", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGuardResponseHeaders(t *testing.T) {
	h := newTestHandler(activeStore())

	rec := serve(t, h, "/clowiza-guard?id=kwzw_link-1", nil)

	assert.Equal(t, "application/javascript", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store, no-cache, must-revalidate, proxy-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

// The id parameter works with or without the literal tag prefix.
func TestGuardIDPrefixStripping(t *testing.T) {
	store := activeStore()
	h := newTestHandler(store)

	rec := serve(t, h, "/clowiza-guard?id=link-1", map[string]string{
		"CF-IPCountry": "AO",
		"User-Agent":   "Mozilla/5.0 (iPhone)",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "location")
}
