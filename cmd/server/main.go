package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/allthatprinting/pinto/backend-go/internal/asset"
	"github.com/allthatprinting/pinto/backend-go/internal/auth"
	"github.com/allthatprinting/pinto/backend-go/internal/collab"
	"github.com/allthatprinting/pinto/backend-go/internal/config"
	"github.com/allthatprinting/pinto/backend-go/internal/design"
	"github.com/allthatprinting/pinto/backend-go/internal/designapi"
	"github.com/allthatprinting/pinto/backend-go/internal/engine"
	"github.com/allthatprinting/pinto/backend-go/internal/export"
	mw "github.com/allthatprinting/pinto/backend-go/internal/middleware"
	"github.com/allthatprinting/pinto/backend-go/internal/placeholder"
	"github.com/allthatprinting/pinto/backend-go/internal/store"
	"github.com/allthatprinting/pinto/backend-go/internal/typeid"
)

// playgroundDesignID is the one session open to anonymous users.
const playgroundDesignID = "playground"

type kvStore interface {
	store.KV
	Close()
}

type sqliteStore struct{ *store.SQLite }

func (s sqliteStore) Close() {
	if err := s.SQLite.Close(); err != nil {
		slog.Error("close sqlite", "error", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (kvStore, error) {
	if cfg.DatabaseURL != "" {
		slog.Info("using postgres store")
		return store.NewPostgres(ctx, cfg.DatabaseURL)
	}
	slog.Info("using sqlite store", "path", cfg.SQLitePath)
	db, err := store.OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	return sqliteStore{db}, nil
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	authService := auth.NewService(cfg.JWTSecret)

	// The playground persists under the configured storage key; every other
	// session under its design id.
	sessionKey := func(designID string) string {
		if designID == playgroundDesignID {
			return cfg.StorageKey
		}
		return designapi.SessionKey(designID)
	}
	designLoader := func(ctx context.Context, designID string) (*design.SavedDesign, error) {
		return store.LoadDesign(ctx, kv, sessionKey(designID), design.DefaultProductType)
	}
	designSaver := func(ctx context.Context, designID string, d *design.SavedDesign) error {
		return store.SaveDesign(ctx, kv, sessionKey(designID), d)
	}

	hub := collab.NewHub(designLoader, designSaver, engine.WithHistoryLimit(cfg.HistoryLimit))
	go hub.Run()

	assetHandler := asset.NewHandler(cfg.AssetDir)
	exportHandler := export.NewHandler(export.NewSourceLoader(cfg.AssetDir), float64(cfg.ExportDPI))
	designHandler := designapi.NewHandler(kv)

	origins := mw.ParseOrigins(cfg.AllowedOrigins)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(origins))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Asset endpoints (public, used by the playground and signed-in users)
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	r.HandleFunc("/export/design", exportHandler.ExportDesign).Methods("POST", "OPTIONS")
	r.HandleFunc("/placeholder/{size}", placeholder.Serve).Methods("GET")
	r.HandleFunc("/api/presets", designHandler.Presets).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/sessions", designHandler.CreateSession).Methods("POST")
	api.HandleFunc("/designs/{key}", designHandler.Get).Methods("GET")
	api.HandleFunc("/designs/{key}", designHandler.Put).Methods("PUT")
	api.HandleFunc("/designs/{key}", designHandler.Delete).Methods("DELETE")

	// WebSocket endpoint
	r.HandleFunc("/ws/design/{designId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, origins)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop the hub first so open sessions are saved
		slog.Info("saving open designs")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, origins []string) {
	designID := mux.Vars(r)["designId"]

	var id auth.Identity
	if designID == playgroundDesignID {
		id = auth.Identity{UserID: typeid.NewUserID(), DisplayName: "Anonymous"}
	} else {
		if err := typeid.Validate(designID, typeid.PrefixDesign); err != nil {
			http.Error(w, "invalid design id", http.StatusBadRequest)
			return
		}

		// Browsers cannot set headers on websocket upgrades
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		var err error
		id, err = authSvc.Identify(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if id.DisplayName == "" {
			id.DisplayName = id.UserID
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(origins),
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := collab.NewClient(hub, conn, id.UserID, id.DisplayName, designID, clientID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

// originPatterns converts allowed origins to websocket host patterns.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			patterns = append(patterns, o)
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}
