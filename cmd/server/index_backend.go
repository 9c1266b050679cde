package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"riskyrun.app/internal/board"
	"riskyrun.app/internal/game/catalogs"
	"riskyrun.app/internal/game/history"
	"riskyrun.app/internal/game/tuning"
	"riskyrun.app/internal/persistence/indexdb"
)

type runtimeIndex interface {
	board.HistorySink
	board.ClaimSink
	Close() error
	UpsertCatalogs(regions *catalogs.Regions, tune tuning.Tuning) error
	Stats() indexdb.Stats
}

func openRuntimeIndex(dataDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("RR_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(dataDir, "index", "board.sqlite")
		return indexdb.OpenSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unsupported RR_INDEX_BACKEND: %s", backend)
	}
}

// multiSink fans one commit out to every configured journal/index.
type multiSink struct {
	history []board.HistorySink
	claims  []board.ClaimSink
}

func (m multiSink) WriteSnapshot(s history.Snapshot) error {
	var first error
	for _, h := range m.history {
		if err := h.WriteSnapshot(s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m multiSink) WriteClaim(e board.ClaimEntry) error {
	var first error
	for _, c := range m.claims {
		if err := c.WriteClaim(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
