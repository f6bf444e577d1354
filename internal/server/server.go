package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/encounter-tracker/internal/events"
	"github.com/GriffinCanCode/encounter-tracker/internal/orchestrator"
	"github.com/GriffinCanCode/encounter-tracker/internal/store"
	"github.com/GriffinCanCode/encounter-tracker/internal/trace"
	"github.com/GriffinCanCode/encounter-tracker/internal/uistate"
)

// Catalog is the store surface the API reads and edits directly.
type Catalog interface {
	ListProfiles(ctx context.Context) ([]store.Profile, error)
	CreateProfile(ctx context.Context, name string) (store.Profile, error)
	RenameProfile(ctx context.Context, id int64, name string) error
	ListHunts(ctx context.Context, profileID int64) ([]store.Hunt, error)
	CreateHunt(ctx context.Context, profileID int64, name string) (store.Hunt, error)
	RenameHunt(ctx context.Context, id int64, name string) error
	Aggregates(ctx context.Context, huntID int64) store.Aggregates
	AddManualEncounter(ctx context.Context, m store.ManualEncounter) (store.ManualEncounter, error)
	ManualEncounters(ctx context.Context, huntID int64) ([]store.ManualEncounter, error)
	Export(ctx context.Context, scope store.Scope, id int64) (string, error)
}

// Tracker is the manager surface: operations that move the active hunt or
// touch the view state.
type Tracker interface {
	ActiveHunt(ctx context.Context) (store.Hunt, error)
	SelectHunt(ctx context.Context, id int64) (store.Hunt, error)
	DeleteHunt(ctx context.Context, id int64) error
	DeleteProfile(ctx context.Context, id int64) error
	Preferences() uistate.State
	SetPreferences(ctx context.Context, p uistate.State) (uistate.State, error)
	ScanState() orchestrator.WorkItem
}

// Subscriber hands out event subscriptions.
type Subscriber interface {
	Subscribe(buffer int) (<-chan events.Event, func())
}

// Message is the envelope of inbound websocket messages.
type Message struct {
	Type string `json:"type"`
}

// SnapshotMessage answers a "refresh" request.
type SnapshotMessage struct {
	Type       string           `json:"type"`
	Hunt       store.Hunt       `json:"hunt"`
	Aggregates store.Aggregates `json:"aggregates"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}
	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	catalog Catalog
	tracker Tracker
	bus     Subscriber
}

// New creates a new server.
func New(catalog Catalog, tracker Tracker, bus Subscriber) *Server {
	return &Server{catalog: catalog, tracker: tracker, bus: bus}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/status", s.handleStatus)

	mux.HandleFunc("GET /api/profiles", s.handleListProfiles)
	mux.HandleFunc("POST /api/profiles", s.handleCreateProfile)
	mux.HandleFunc("PATCH /api/profiles/{id}", s.handleRenameProfile)
	mux.HandleFunc("DELETE /api/profiles/{id}", s.handleDeleteProfile)
	mux.HandleFunc("GET /api/profiles/{id}/hunts", s.handleListHunts)
	mux.HandleFunc("POST /api/profiles/{id}/hunts", s.handleCreateHunt)

	mux.HandleFunc("PATCH /api/hunts/{id}", s.handleRenameHunt)
	mux.HandleFunc("DELETE /api/hunts/{id}", s.handleDeleteHunt)
	mux.HandleFunc("GET /api/hunts/{id}/aggregates", s.handleAggregates)
	mux.HandleFunc("GET /api/hunts/{id}/manual", s.handleListManual)
	mux.HandleFunc("POST /api/hunts/{id}/manual", s.handleAddManual)

	mux.HandleFunc("GET /api/active", s.handleGetActive)
	mux.HandleFunc("PUT /api/active", s.handleSetActive)
	mux.HandleFunc("GET /api/preferences", s.handleGetPreferences)
	mux.HandleFunc("PUT /api/preferences", s.handleSetPreferences)

	mux.HandleFunc("POST /api/export", s.handleExport)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleWebSocket streams every domain event to the client as JSON and
// answers {"type":"refresh"} with a snapshot of the active hunt.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		trace.Logger(r.Context()).Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	log := trace.Logger(ctx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	evts, unsubscribe := s.bus.Subscribe(EventBuffer)
	defer unsubscribe()

	var writeMu sync.Mutex
	write := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		wctx, wcancel := context.WithTimeout(ctx, WriteTimeout)
		defer wcancel()
		return wsjson.Write(wctx, conn, v)
	}

	go func() {
		defer cancel()
		for e := range evts {
			if err := write(e); err != nil {
				log.Debug("websocket write error", "error", err)
				return
			}
		}
	}()

	limiter := &rateLimiter{}
	for {
		var msg json.RawMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !limiter.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = write(ErrorMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "refresh":
			if err := write(s.snapshot(ctx)); err != nil {
				return
			}
		default:
			_ = write(ErrorMessage{Type: "error", Message: "unknown message type " + base.Type})
		}
	}
}

func (s *Server) snapshot(ctx context.Context) any {
	ctx, span := trace.StartSpan(ctx, "ws.snapshot")
	defer span.End()

	h, err := s.tracker.ActiveHunt(ctx)
	if err != nil {
		return ErrorMessage{Type: "error", Message: err.Error()}
	}
	return SnapshotMessage{Type: "snapshot", Hunt: h, Aggregates: s.catalog.Aggregates(ctx, h.ID)}
}
