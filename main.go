package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/parts.report/internal/config"
	"github.com/banshee-data/parts.report/internal/db"
	"github.com/banshee-data/parts.report/internal/triage"
	"github.com/banshee-data/parts.report/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	scenePath     = flag.String("scene", "", "Path to the Wavefront OBJ scene to serve")
	dbPath        = flag.String("db", "triage_runs.db", "Path to the run database; empty disables persistence")
	tuningPath    = flag.String("tuning", "", "Path to a tuning config JSON (optional)")
	migrationsDir = flag.String("migrations", "db/migrations", "Directory containing schema migrations")
	workers       = flag.Int("workers", 0, "Worker goroutines for analysis (0 = NumCPU)")
)

func main() {
	flag.Parse()
	log.Printf("parts.report %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if *scenePath == "" {
		log.Fatal("A scene file is required (-scene path/to/scene.obj)")
	}

	scene, err := triage.LoadOBJScene(*scenePath)
	if err != nil {
		log.Fatalf("failed to load scene: %v", err)
	}
	log.Printf("loaded scene %s (%d objects)", scene.Source, scene.Len())

	tuning := config.EmptyTuning()
	if *tuningPath != "" {
		tuning, err = config.LoadTuning(*tuningPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		log.Printf("loaded tuning config from %s", *tuningPath)
	}

	engine := triage.NewEngine(scene, effectiveWorkers(tuning))

	var store *db.DB
	if *dbPath != "" {
		store, err = db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer store.Close()
		if err := store.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	} else {
		log.Print("run persistence disabled (-db \"\")")
	}

	var manager *triage.RunManager
	if store != nil {
		manager = triage.NewRunManager(store.DB, engine)
	} else {
		manager = triage.NewRunManager(nil, engine)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := NewServer(manager).ServeMux()
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("got request %q", r.URL.Path)
			mux.ServeHTTP(w, r)
		})

		server := &http.Server{
			Addr:    *listen,
			Handler: h,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()
		log.Printf("listening on %s", *listen)

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Print("exiting")
}

// effectiveWorkers prefers the command line over the tuning file.
func effectiveWorkers(tuning *config.Tuning) int {
	if *workers > 0 {
		return *workers
	}
	return tuning.GetWorkers()
}
