package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"roomchat/internal/config"
	"roomchat/internal/database"
	"roomchat/internal/handlers"
	"roomchat/internal/registry"
	ws "roomchat/internal/websocket"
	"roomchat/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize persistence gateway
	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open store: %v", err)
	}
	defer store.Close()

	// Initialize realtime core
	reg := registry.New()
	hub := ws.NewHub(reg, store, cfg.Chat.HistoryLimit)

	// Initialize handlers
	wsHandlers := handlers.NewWebSocketHandlers(hub)
	historyHandlers := handlers.NewHistoryHandlers(store)
	uploadHandlers, err := handlers.NewUploadHandlers(cfg.Upload.Dir, cfg.Upload.MaxBytes)
	if err != nil {
		logger.Fatal("Failed to set up uploads: %v", err)
	}

	// Setup routes
	mux := http.NewServeMux()
	setupRoutes(mux, wsHandlers, historyHandlers, uploadHandlers, cfg.Upload.Dir)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("Chat server started on http://localhost%s", cfg.Server.Port)
	logger.Info("WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")
	server.Shutdown(context.Background())
}

func openStore(cfg *config.Config) (database.Gateway, error) {
	if cfg.Store.PostgresURL != "" {
		return database.NewPostgresGateway(context.Background(), cfg.Store.PostgresURL)
	}
	return database.NewSQLiteGateway(cfg.Store.SQLitePath)
}

func setupRoutes(mux *http.ServeMux, wsHandlers *handlers.WebSocketHandlers, historyHandlers *handlers.HistoryHandlers, uploadHandlers *handlers.UploadHandlers, uploadDir string) {
	// WebSocket route
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)

	// Upload route
	mux.HandleFunc("/api/upload", uploadHandlers.Upload)

	// REST history fallback: /api/room/{roomId}/messages
	mux.HandleFunc("/api/room/", historyHandlers.RoomRoutes)

	// Serve stored uploads
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir))))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
