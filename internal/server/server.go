package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jothihub/jothi-gateway/internal/channel"
	"github.com/jothihub/jothi-gateway/internal/channel/whatsapp"
	"github.com/jothihub/jothi-gateway/internal/config"
	"github.com/jothihub/jothi-gateway/internal/engine"
)

// Server is the HTTP front of the gateway: the WhatsApp webhook plus
// health, metrics and the operator event socket.
type Server struct {
	cfg        *config.Config
	engine     *engine.Engine
	waConn     channel.Conn
	httpServer *http.Server
	startTime  time.Time
	logger     *slog.Logger
}

// HealthResponse is the health check body
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Uptime    string          `json:"uptime"`
	Services  map[string]bool `json:"services"`
	Timestamp string          `json:"timestamp"`
}

// New creates the HTTP server. eventSocket may be nil when the
// operator socket is disabled.
func New(cfg *config.Config, eng *engine.Engine, waConn channel.Conn, eventSocket http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		engine:    eng,
		waConn:    waConn,
		logger:    logger,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	if eventSocket != nil {
		mux.Handle("/ws", eventSocket)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// webhookHandler serves both halves of the Cloud API webhook contract:
// GET is Meta's subscription handshake, POST delivers message batches.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.verifyHandler(w, r)
	case http.MethodPost:
		s.receiveHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// verifyHandler echoes hub.challenge back verbatim when the verify
// token matches. Anything else gets a plain 403.
func (s *Server) verifyHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && token == s.cfg.Webhook.VerifyToken {
		s.logger.Info("Webhook verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}

	s.logger.Warn("Webhook verification rejected", "mode", mode)
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte("Forbidden"))
}

// receiveHandler acknowledges every delivery with EVENT_RECEIVED so
// Meta never retries, then processes the batch off the request
// goroutine.
func (s *Server) receiveHandler(w http.ResponseWriter, r *http.Request) {
	var payload whatsapp.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.logger.Warn("Undecodable webhook payload", "error", err)
	} else {
		for _, ev := range payload.Events() {
			go s.engine.HandleEvent(context.Background(), ev, s.waConn)
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("EVENT_RECEIVED"))
}

// healthHandler handles health check requests
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: "1.0.0",
		Uptime:  time.Since(s.startTime).String(),
		Services: map[string]bool{
			"http":     true,
			"telegram": s.cfg.Channels.Telegram.Enabled,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
