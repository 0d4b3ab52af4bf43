package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/custodia-labs/vaultd/internal/logger"
	"github.com/custodia-labs/vaultd/internal/state"
	"github.com/custodia-labs/vaultd/internal/types"
	"github.com/custodia-labs/vaultd/internal/vault"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes read-only vault views and persisted receipts over HTTP
// for the external display layer. It never mutates vault state.
type WebServer struct {
	router *mux.Router
	vault  *vault.Vault
	port   string
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, v *vault.Vault) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		vault:  v,
		port:   port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/vault/summary", ws.handleGetSummary).Methods("GET")
	api.HandleFunc("/vault/adapters", ws.handleGetAdapters).Methods("GET")
	api.HandleFunc("/vault/holders/{id}/limits", ws.handleGetHolderLimits).Methods("GET")
	api.HandleFunc("/receipts", ws.handleGetReceipts).Methods("GET")
	api.HandleFunc("/failures", ws.handleGetFailures).Methods("GET")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server and database health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbHealthy := state.TestDBConnection() == nil

	status := "healthy"
	code := http.StatusOK
	if !dbHealthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	ws.writeJSON(w, code, map[string]interface{}{
		"status":       status,
		"db_connected": dbHealthy,
		"timestamp":    time.Now().UTC(),
	})
}

// handleGetSummary returns the current vault snapshot
func (ws *WebServer) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, ws.vault.Snapshot())
}

// handleGetAdapters returns the registered adapter views in cascade order
func (ws *WebServer) handleGetAdapters(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, ws.vault.Snapshot().Adapters)
}

// handleGetHolderLimits returns the per-holder entry/exit limits
func (ws *WebServer) handleGetHolderLimits(w http.ResponseWriter, r *http.Request) {
	holder := mux.Vars(r)["id"]
	if holder == "" {
		ws.writeError(w, http.StatusBadRequest, "holder id is required")
		return
	}

	id := types.AccountID(holder)
	ws.writeJSON(w, http.StatusOK, map[string]string{
		"holder":       holder,
		"shares":       ws.vault.Ledger().BalanceOf(id).String(),
		"max_deposit":  ws.vault.MaxDeposit(id).String(),
		"max_mint":     ws.vault.MaxMint(id).String(),
		"max_withdraw": ws.vault.MaxWithdraw(id).String(),
		"max_redeem":   ws.vault.MaxRedeem(id).String(),
	})
}

// handleGetReceipts returns recent operation receipts
func (ws *WebServer) handleGetReceipts(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)
	receipts, err := state.GetRecentReceipts(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to load operation receipts")
		ws.writeError(w, http.StatusInternalServerError, "failed to load receipts")
		return
	}
	ws.writeJSON(w, http.StatusOK, receipts)
}

// handleGetFailures returns recent cascade adapter failures
func (ws *WebServer) handleGetFailures(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)
	failures, err := state.GetRecentAdapterFailures(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to load adapter failures")
		ws.writeError(w, http.StatusInternalServerError, "failed to load failures")
		return
	}
	ws.writeJSON(w, http.StatusOK, failures)
}

// writeJSON writes a JSON response with the given status code
func (ws *WebServer) writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (ws *WebServer) writeError(w http.ResponseWriter, code int, message string) {
	ws.writeJSON(w, code, map[string]string{"error": message})
}

// corsMiddleware adds permissive CORS headers for the dashboard frontend
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request with latency
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		webLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("latency", time.Since(start)).
			Msg("Handled request")
	})
}

// parseLimit reads the "limit" query parameter with a default value
func parseLimit(r *http.Request, defaultLimit int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 500 {
		return defaultLimit
	}
	return limit
}
