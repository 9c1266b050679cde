package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"riskyrun.app/internal/board"
	"riskyrun.app/internal/game/catalogs"
	"riskyrun.app/internal/game/engine"
	"riskyrun.app/internal/game/region"
	"riskyrun.app/internal/game/tuning"
	persistlog "riskyrun.app/internal/persistence/log"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		configDir   = flag.String("configs", "./configs", "config directory")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		tuningPath  = flag.String("game", "", "path to game.yaml (default: <configs>/game.yaml)")
		regionsPath = flag.String("regions", "", "path to regions.yaml (default: <configs>/regions.yaml)")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite history/claim index")
		disableLog  = flag.Bool("disable_journal", false, "disable the zstd history/claim journal")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "game.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load game config: %v", err)
		}
		logger.Printf("game config not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if v := envInt("RR_STARTING_POINTS", 0); v > 0 {
		tune.StartingPoints = v
	}
	tune.AssertInvariants = envBool("RR_ASSERT_INVARIANTS", tune.AssertInvariants)
	if err := tune.Validate(); err != nil {
		logger.Fatalf("game config: %v", err)
	}

	rp := strings.TrimSpace(*regionsPath)
	if rp == "" {
		rp = filepath.Join(*configDir, "regions.yaml")
	}
	regions, err := catalogs.LoadRegions(rp)
	if err != nil {
		logger.Fatalf("load regions: %v", err)
	}

	ids := make([]region.ID, 0, len(regions.Order))
	for _, id := range regions.Order {
		ids = append(ids, region.ID(id))
	}
	eng, err := engine.New(engine.Config{
		Tuning:  tune,
		Regions: ids,
		Logger:  log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lmicroseconds),
	})
	if err != nil {
		logger.Fatalf("engine: %v", err)
	}

	// Optional read-model index; the journal stays the source of truth.
	idx, err := openRuntimeIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(regions, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	var sinks multiSink
	var journals []journalStatser
	if !*disableLog {
		historyLog := persistlog.NewHistoryLogger(*dataDir)
		claimLog := persistlog.NewClaimLogger(*dataDir)
		defer historyLog.Close()
		defer claimLog.Close()
		sinks.history = append(sinks.history, historyLog)
		sinks.claims = append(sinks.claims, claimLog)
		journals = append(journals, historyLog, claimLog)
	}
	if idx != nil {
		sinks.history = append(sinks.history, idx)
		sinks.claims = append(sinks.claims, idx)
	}

	b, err := board.New(board.Config{
		Engine:  eng,
		Regions: regions,
		Logger:  log.New(os.Stdout, "[board] ", log.LstdFlags|log.Lmicroseconds),
		History: sinks,
		Claims:  sinks,
	})
	if err != nil {
		logger.Fatalf("board: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := b.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("board stopped: %v", err)
		}
	}()

	mux := newMux(routeDeps{
		Board:           b,
		Index:           idx,
		Journals:        journals,
		Logger:          logger,
		EnableAdminHTTP: envBool("RR_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
		EnablePprofHTTP: envBool("RR_ENABLE_PPROF_HTTP", false),
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s players=%d regions=%d", *addr, len(tune.Players), len(ids))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
