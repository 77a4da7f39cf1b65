package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fdg312/stay-hub/internal/blob"
	"github.com/fdg312/stay-hub/internal/checkins"
	"github.com/fdg312/stay-hub/internal/config"
	"github.com/fdg312/stay-hub/internal/devicestate"
	"github.com/fdg312/stay-hub/internal/gate"
	"github.com/fdg312/stay-hub/internal/refdata"
	"github.com/fdg312/stay-hub/internal/reports"
	"github.com/fdg312/stay-hub/internal/session"
	"github.com/fdg312/stay-hub/internal/storage"
	"github.com/fdg312/stay-hub/internal/storage/memory"
	"github.com/fdg312/stay-hub/internal/storage/postgres"
	"github.com/fdg312/stay-hub/internal/upstream"
)

// Server represents the HTTP server
type Server struct {
	config  *config.Config
	mux     *http.ServeMux
	storage    storage.Storage
	gate       *gate.Middleware
	session    *session.Service
	gateCancel func()
}

// New creates a new HTTP server
func New(cfg *config.Config) *Server {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
	}

	// Initialize storage
	s.initStorage()

	// Register routes
	s.routes()
	return s
}

// initStorage initializes storage (Memory or Postgres)
func (s *Server) initStorage() {
	if s.config.DatabaseURL == "" {
		log.Println("Using in-memory storage")
		s.storage = memory.New()
	} else {
		log.Println("Connecting to PostgreSQL...")
		ctx := context.Background()
		pgStorage, err := postgres.New(ctx, s.config.DatabaseURL)
		if err != nil {
			log.Printf("PostgreSQL connection failed: %v", err)
			log.Println("Falling back to in-memory storage")
			s.storage = memory.New()
		} else {
			log.Println("PostgreSQL connected")
			s.storage = pgStorage
		}
	}
}

// sessionTokenSource defers the token lookup until the session service
// exists: the upstream client and the session service reference each other.
type sessionTokenSource struct {
	session *session.Service
}

func (t *sessionTokenSource) AccessToken() string {
	if t.session == nil {
		return ""
	}
	return t.session.AccessToken()
}

// routes registers routes
func (s *Server) routes() {
	// Health check (no auth required)
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	// Upstream DOT API client; the bearer token comes from the session service.
	tokens := &sessionTokenSource{}
	upstreamClient := upstream.New(
		s.config.UpstreamBaseURL,
		time.Duration(s.config.UpstreamTimeoutSeconds)*time.Second,
		tokens,
	)

	stateStorage := s.getDeviceStateStorage()

	// Auth API (no auth required)
	sessionService := session.NewService(s.config, upstreamClient, stateStorage)
	tokens.session = sessionService
	s.session = sessionService
	sessionHandlers := session.NewHandlers(sessionService)
	s.gate = gate.NewMiddleware(sessionService, s.config.GateLoginPath, s.config.GateForbiddenPath)

	// POST /v1/auth/login - authenticate against upstream, issue local JWT
	s.mux.HandleFunc("POST /v1/auth/login", sessionHandlers.HandleLogin)

	// POST /v1/auth/logout - clear the stored session
	s.mux.HandleFunc("POST /v1/auth/logout", sessionHandlers.HandleLogout)

	// GET /v1/auth/session - resolve the current session state
	s.mux.HandleFunc("GET /v1/auth/session", sessionHandlers.HandleSession)

	// Gate watcher: follows session state and serves the current verdict.
	watcher := gate.NewWatcher(
		nil,
		s.config.GateLoginPath,
		s.config.GateForbiddenPath,
		time.Duration(s.config.GateDebounceMs)*time.Millisecond,
		nil,
	)
	watcher.Observe(sessionService.Current())
	states, cancel := sessionService.Subscribe()
	s.gateCancel = cancel
	go watcher.Run(states)

	// GET /v1/auth/gate - current gate decision (debounced overlay flag)
	s.mux.HandleFunc("GET /v1/auth/gate", gate.HandleDecision(watcher))

	anyRole := s.gate.RequireRoles(session.RoleAE, session.RoleDOT, session.RoleProvince)
	aeOnly := s.gate.RequireRoles(session.RoleAE)

	// Reports API
	reportsService := reports.NewService(upstreamClient)
	blobStore := s.initBlobStore()
	exportService := reports.NewExportService(
		reportsService,
		s.getExportsStorage(),
		blobStore,
		s.config.Blob.S3.PresignTTLSeconds,
		s.config.ExportMaxMonths,
	)
	reportsHandlers := reports.NewHandlers(reportsService, exportService)

	// GET /v1/reports - paged merged reports for an establishment
	s.protect("GET /v1/reports", anyRole, reportsHandlers.HandleGetReports)

	// GET /v1/reports/counts - flagged/missing counts across all statuses
	s.protect("GET /v1/reports/counts", anyRole, reportsHandlers.HandleGetCounts)

	// GET /v1/reports/summary - distinct years and latest reports
	s.protect("GET /v1/reports/summary", anyRole, reportsHandlers.HandleGetSummary)

	// POST /v1/reports/export - generate a PDF export
	s.protect("POST /v1/reports/export", anyRole, reportsHandlers.HandleCreateExport)

	// GET /v1/reports/export - list exports for an establishment
	s.protect("GET /v1/reports/export", anyRole, reportsHandlers.HandleListExports)

	// GET /v1/reports/export/{id} - export metadata
	s.protect("GET /v1/reports/export/{id}", anyRole, reportsHandlers.HandleGetExport)

	// DELETE /v1/reports/export/{id} - delete an export
	s.protect("DELETE /v1/reports/export/{id}", anyRole, reportsHandlers.HandleDeleteExport)

	// GET /v1/reports/export/{id}/download - serve or redirect to the PDF
	s.protect("GET /v1/reports/export/{id}/download", anyRole, reportsHandlers.HandleDownloadExport)

	// Check-ins API (pass-through to upstream)
	checkinsService := checkins.NewService(upstreamClient)

	// GET /v1/checkins - list checkins
	s.protect("GET /v1/checkins", anyRole, checkins.HandleList(checkinsService))

	// GET /v1/checkins/kpis - formatted KPI snapshot
	s.protect("GET /v1/checkins/kpis", anyRole, checkins.HandleKPIs(checkinsService))

	// POST /v1/checkins - create checkin
	s.protect("POST /v1/checkins", aeOnly, checkins.HandleCreate(checkinsService))

	// PUT /v1/checkins/{id} - update checkin
	s.protect("PUT /v1/checkins/{id}", aeOnly, checkins.HandleUpdate(checkinsService))

	// DELETE /v1/checkins/{id} - delete checkin
	s.protect("DELETE /v1/checkins/{id}", aeOnly, checkins.HandleDelete(checkinsService))

	// DELETE /v1/guestlogs/{logId}/nationalities/{nationId} - delete a guest-log nationality line
	s.protect("DELETE /v1/guestlogs/{logId}/nationalities/{nationId}", aeOnly, checkins.HandleDeleteNationality(checkinsService))

	// Reference data API (cached per device)
	refdataService := refdata.NewService(
		upstreamClient,
		stateStorage,
		time.Duration(s.config.RefdataRefreshTTLHours)*time.Hour,
	)

	// GET /v1/refdata/nationalities - cached nationality list
	s.protect("GET /v1/refdata/nationalities", anyRole, refdata.HandleNationalities(refdataService))

	// GET /v1/refdata/room-types - cached room type list
	s.protect("GET /v1/refdata/room-types", anyRole, refdata.HandleRoomTypes(refdataService))

	// Device state API (per-device KV sync)
	stateHandlers := devicestate.NewHandlers(stateStorage)

	// GET /v1/state - list stored keys for the device
	s.protect("GET /v1/state", anyRole, stateHandlers.HandleList)

	// GET /v1/state/{key} - read a value
	s.protect("GET /v1/state/{key}", anyRole, stateHandlers.HandleGet)

	// PUT /v1/state/{key} - store a JSON value
	s.protect("PUT /v1/state/{key}", anyRole, stateHandlers.HandlePut)

	// DELETE /v1/state/{key} - remove a value
	s.protect("DELETE /v1/state/{key}", anyRole, stateHandlers.HandleDelete)
}

// protect registers a handler behind the gate middleware.
func (s *Server) protect(pattern string, mw func(http.Handler) http.Handler, h http.HandlerFunc) {
	s.mux.Handle(pattern, mw(h))
}

// getDeviceStateStorage returns the device state storage based on storage type
func (s *Server) getDeviceStateStorage() storage.DeviceStateStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetDeviceStateStorage()
	case *postgres.PostgresStorage:
		return st.GetDeviceStateStorage()
	default:
		log.Fatal("unknown storage type")
		return nil
	}
}

// getExportsStorage returns the report exports storage based on storage type
func (s *Server) getExportsStorage() storage.ExportsStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetExportsStorage()
	case *postgres.PostgresStorage:
		return st.GetExportsStorage()
	default:
		log.Fatal("unknown storage type")
		return nil
	}
}

// initBlobStore initializes the export blob store. A nil store means
// local mode: export bytes live in the exports storage.
func (s *Server) initBlobStore() blob.Store {
	log.Printf("INFO blob: initializing export store (BLOB_MODE=%s)", s.config.Blob.Mode)
	store, mode, err := blob.NewBlobStore(s.config.Blob, log.Default())
	if err != nil {
		log.Fatalf("FATAL blob: failed to initialize export store: %v", err)
	}
	log.Printf("INFO blob: export blob mode: %s", mode)
	return store
}

// handleHealthz reports server status
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	// Build middleware chain (outermost first): CORS → Rate Limit → Router.
	// The gate wraps protected routes individually.
	var handler http.Handler = s.mux
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)

	log.Printf("Server listening on http://localhost%s\n", addr)
	log.Printf("Health check: http://localhost%s/healthz\n", addr)
	log.Printf("Reports API: http://localhost%s/v1/reports\n", addr)

	return http.ListenAndServe(addr, handler)
}

// Close closes storage and releases resources
func (s *Server) Close() error {
	if s.gateCancel != nil {
		s.gateCancel()
	}
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
