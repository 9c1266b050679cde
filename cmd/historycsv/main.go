package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"riskyrun.app/internal/board"
	"riskyrun.app/internal/game/catalogs"
	"riskyrun.app/internal/game/history"
	"riskyrun.app/internal/game/ledger"
	"riskyrun.app/internal/game/tuning"
	"riskyrun.app/internal/persistence/indexdb"
	persistlog "riskyrun.app/internal/persistence/log"
)

func main() {
	var (
		dataDir   = flag.String("data", "./data", "runtime data directory holding history/ and claims/")
		dbPath    = flag.String("db", "", "read snapshots from this sqlite index instead of the journal (optional)")
		session   = flag.String("session", "", "index session id (default: latest; only with -db)")
		configDir = flag.String("configs", "./configs", "config directory")
		outDir    = flag.String("out", ".", "output directory for the csv files")
		verify    = flag.Bool("verify", false, "replay the claims journal and check it reproduces the history")
	)
	flag.Parse()

	tune, err := tuning.Load(filepath.Join(*configDir, "game.yaml"))
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "load game config:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}

	var snaps []history.Snapshot
	if strings.TrimSpace(*dbPath) != "" {
		snaps, err = indexdb.LoadSnapshots(context.Background(), *dbPath, *session)
	} else {
		snaps, err = persistlog.ReadHistory(*dataDir)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "read history:", err)
		os.Exit(1)
	}
	fmt.Printf("history snapshots=%d\n", len(snaps))

	if *verify {
		regions, err := catalogs.LoadRegions(filepath.Join(*configDir, "regions.yaml"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "load regions:", err)
			os.Exit(1)
		}
		claims, err := readClaims(*dataDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read claims:", err)
			os.Exit(1)
		}
		if err := verifyClaims(tune, regions, claims, snaps); err != nil {
			fmt.Fprintln(os.Stderr, "verify:", err)
			os.Exit(1)
		}
		fmt.Printf("verified claims=%d\n", len(claims))
	}

	cols := make([]history.Column, 0, len(tune.Players))
	for _, p := range tune.Players {
		cols = append(cols, history.Column{ID: ledger.PlayerID(p.ID), Label: p.Name})
	}
	for _, metric := range []history.Metric{history.MetricScore, history.MetricClaimed} {
		path := filepath.Join(*outDir, history.FileName(metric))
		if err := writeCSVFile(path, metric, cols, snaps, tune); err != nil {
			fmt.Fprintln(os.Stderr, "write", filepath.Base(path)+":", err)
			os.Exit(1)
		}
		fmt.Println("wrote", path)
	}
}

func writeCSVFile(path string, metric history.Metric, cols []history.Column, snaps []history.Snapshot, tune tuning.Tuning) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := history.WriteCSV(f, metric, cols, snaps, tune.CSVStartLabel, tune.CSVTimeLayout); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

func readClaims(dataDir string) ([]board.ClaimEntry, error) {
	return persistlog.ReadClaims(dataDir)
}
