package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"riskyrun.app/internal/board"
	"riskyrun.app/internal/game/catalogs"
	"riskyrun.app/internal/game/history"
	"riskyrun.app/internal/game/ledger"
	"riskyrun.app/internal/game/tuning"
)

// SQLiteIndex is a queryable secondary index over the history and claim
// journals. Writes are queued and applied by one goroutine; the JSONL logs
// remain the source of truth.
type SQLiteIndex struct {
	db      *sql.DB
	session string

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropSnapshot atomic.Uint64
	dropClaim    atomic.Uint64
	writeErrors  atomic.Uint64
}

type reqKind int

const (
	reqSnapshot reqKind = iota + 1
	reqClaim
)

type req struct {
	kind reqKind

	snapshot history.Snapshot
	claim    board.ClaimEntry
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropSnapshotTotal uint64
	DropClaimTotal    uint64
	WriteErrorTotal   uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:      db,
		session: uuid.NewString(),
		ch:      make(chan req, 4096),
	}
	if _, err := db.Exec(`INSERT INTO sessions(session,started_at) VALUES(?,?)`,
		s.session, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session TEXT PRIMARY KEY,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			session TEXT NOT NULL,
			seq INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			player TEXT NOT NULL,
			score INTEGER NOT NULL,
			claimed INTEGER NOT NULL,
			PRIMARY KEY (session, seq, player)
		);`,
		`CREATE TABLE IF NOT EXISTS claims (
			session TEXT NOT NULL,
			seq INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			region_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			actor TEXT NOT NULL,
			prev_owner TEXT NOT NULL,
			new_owner TEXT NOT NULL,
			credited INTEGER NOT NULL,
			debited INTEGER NOT NULL,
			point_value INTEGER NOT NULL,
			PRIMARY KEY (session, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_claims_region ON claims(region_id, session, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_claims_actor ON claims(actor, session, seq);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Session identifies this server run; history sequence numbers restart per session.
func (s *SQLiteIndex) Session() string { return s.session }

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteSnapshot(snap history.Snapshot) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: snap}:
	default:
		// Drop if the indexer falls behind.
		s.dropSnapshot.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteClaim(e board.ClaimEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqClaim, claim: e}:
	default:
		s.dropClaim.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		DropClaimTotal:    s.dropClaim.Load(),
		WriteErrorTotal:   s.writeErrors.Load(),
	}
}

// UpsertCatalogs records the configuration the board was started with,
// keyed by content digest.
func (s *SQLiteIndex) UpsertCatalogs(regions *catalogs.Regions, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	rows := map[string]any{
		"game":    tune,
		"regions": regions.List(),
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for name, v := range rows {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(b)
		if _, err := tx.Exec(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`,
			name, hex.EncodeToString(sum[:]), string(b), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(session,seq,recorded_at,player,score,claimed) VALUES(?,?,?,?,?,?)`)
	insertClaim, _ := s.db.Prepare(`INSERT OR REPLACE INTO claims(session,seq,recorded_at,region_id,kind,actor,prev_owner,new_owner,credited,debited,point_value) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
		if insertClaim != nil {
			_ = insertClaim.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrors.Add(1)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		s.writeErrors.Add(1)
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqSnapshot:
			if insertSnapshot == nil {
				break
			}
			sn := r.snapshot
			at := sn.Time.UTC().Format(time.RFC3339Nano)
			stmt := tx.Stmt(insertSnapshot)
			for p, score := range sn.Scores {
				if _, err := stmt.Exec(s.session, sn.Seq, at, string(p), score, sn.Claimed[p]); err != nil {
					rollback()
					break
				}
				opCount++
			}

		case reqClaim:
			if insertClaim == nil {
				break
			}
			c := r.claim
			if _, err := tx.Stmt(insertClaim).Exec(
				s.session,
				c.Seq,
				c.Time.UTC().Format(time.RFC3339Nano),
				c.RegionID,
				c.Kind,
				c.Actor,
				c.PrevOwner,
				c.NewOwner,
				c.Credited,
				c.Debited,
				c.PointValue,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0) {
			commit()
		}
	}

	commit()
}

// LoadSnapshots reads one session's history back from the index at path.
// An empty session selects the most recently started one.
func LoadSnapshots(ctx context.Context, path, session string) ([]history.Snapshot, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if session == "" {
		row := db.QueryRowContext(ctx, `SELECT session FROM sessions ORDER BY rowid DESC LIMIT 1`)
		if err := row.Scan(&session); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, err
		}
	}

	rows, err := db.QueryContext(ctx,
		`SELECT seq,recorded_at,player,score,claimed FROM snapshots WHERE session=? ORDER BY seq`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []history.Snapshot
	for rows.Next() {
		var (
			seq            int
			at, player     string
			score, claimed int
		)
		if err := rows.Scan(&seq, &at, &player, &score, &claimed); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].Seq != seq {
			ts, err := time.Parse(time.RFC3339Nano, at)
			if err != nil {
				return nil, fmt.Errorf("snapshot %d: %w", seq, err)
			}
			out = append(out, history.Snapshot{
				Seq:     seq,
				Time:    ts,
				Scores:  map[ledger.PlayerID]int{},
				Claimed: map[ledger.PlayerID]int{},
			})
		}
		cur := &out[len(out)-1]
		cur.Scores[ledger.PlayerID(player)] = score
		cur.Claimed[ledger.PlayerID(player)] = claimed
	}
	return out, rows.Err()
}
