// cmd/api/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deck-backend/internal/assets"
	"deck-backend/internal/config"
	"deck-backend/internal/generator"
	"deck-backend/internal/handler"
	"deck-backend/internal/schema"
	"deck-backend/internal/service"
	"deck-backend/internal/storage"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Config error:", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// ── Session store ─────────────────────────────────────────────────────────
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open session store:", err)
	}
	defer store.Close()
	log.Printf("Using %s session store", cfg.SessionStore)

	// ── Upload storage ────────────────────────────────────────────────────────
	fileStorage, err := storage.NewLocalStorage(cfg.UploadDir, cfg.BaseURL)
	if err != nil {
		log.Fatal("Failed to prepare upload directory:", err)
	}
	log.Println("Using local storage at", cfg.UploadDir)

	// ── Templates ─────────────────────────────────────────────────────────────
	catalog := schema.NewCatalog(cfg.Flags.DemoTemplates(), cfg.TemplatesDir)
	go func() {
		if err := catalog.Watch(ctx); err != nil {
			log.Printf("catalog: watcher stopped: %v", err)
		}
	}()

	// ── Services & Handlers ───────────────────────────────────────────────────
	gen := generator.New(generator.NewResolver(assets.FS, cfg.ImageFetchTimeout))
	sessionService := service.NewSessionService(store, catalog, gen, fileStorage)
	editorHandler := &handler.EditorHandler{
		Service: sessionService,
		Catalog: catalog,
		Storage: fileStorage,
	}

	pruner := service.NewPruner(store, cfg.SessionTTL)
	if err := pruner.Start(ctx, cfg.PruneSchedule); err != nil {
		log.Fatal("Pruner error:", err)
	}
	defer pruner.Stop()

	// ── Router ────────────────────────────────────────────────────────────────
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if p, ok := store.(interface{ Ping(context.Context) error }); ok {
			if err := p.Ping(r.Context()); err != nil {
				http.Error(w, `{"status":"unhealthy"}`, http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	editorHandler.Register(api)

	r.PathPrefix("/assets/").Handler(
		http.StripPrefix("/assets/", http.FileServer(http.FS(assets.FS))),
	)
	r.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))),
	)

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.ExposedHeaders([]string{"Content-Disposition"}),
	)

	// ── HTTP Server with timeouts ──────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handlers.LoggingHandler(os.Stdout, cors(r)),
		ReadTimeout:  30 * time.Second, // uploads up to 50MB
		WriteTimeout: 60 * time.Second, // generation fetches remote images
		IdleTimeout:  60 * time.Second,
	}

	// ── Graceful Shutdown ──────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Deck service running on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error:", err)
		}
	}()

	<-quit
	log.Println("Shutdown signal received, draining requests...")
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("Forced shutdown:", err)
	}
	sessionService.WaitGenerations(shutdownCtx)
	log.Println("Server stopped cleanly")
}

func openStore(ctx context.Context, cfg *config.Config) (storage.SnapshotStore, error) {
	switch cfg.SessionStore {
	case "postgres":
		return storage.OpenSQL(ctx, storage.Postgres, cfg.DatabaseURL)
	case "mysql":
		return storage.OpenSQL(ctx, storage.MySQL, cfg.DatabaseURL)
	case "mongo":
		return storage.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return storage.OpenSQL(ctx, storage.SQLite, cfg.SQLitePath)
	}
}
