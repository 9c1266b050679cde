package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

type claimFilter struct {
	Session string
	Region  string
	Actor   string
	Limit   int
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/index/board.sqlite)")
	session := fs.String("session", "", "session id (default: latest)")
	region := fs.String("region", "", "region_id filter (claims)")
	actor := fs.String("actor", "", "actor filter (claims)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "claims"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "board.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if q != "sessions" && *session == "" {
		s, err := latestSession(db)
		if err != nil {
			fmt.Fprintln(os.Stderr, "latest session:", err)
			os.Exit(1)
		}
		if s == "" {
			fmt.Fprintln(os.Stderr, "no sessions found")
			os.Exit(2)
		}
		*session = s
	}

	switch q {
	case "sessions":
		err = listSessions(db, os.Stdout, *limit)
	case "claims":
		err = listClaims(db, os.Stdout, claimFilter{Session: *session, Region: *region, Actor: *actor, Limit: *limit})
	case "scores":
		err = latestScores(db, os.Stdout, *session)
	default:
		fmt.Fprintf(os.Stderr, "unknown query: %s\n", q)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, q+":", err)
		os.Exit(1)
	}
}

func latestSession(db *sql.DB) (string, error) {
	var s string
	err := db.QueryRow(`SELECT session FROM sessions ORDER BY rowid DESC LIMIT 1`).Scan(&s)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return s, err
}

func listSessions(db *sql.DB, w io.Writer, limit int) error {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`SELECT s.session, s.started_at, COUNT(c.seq)
		FROM sessions s LEFT JOIN claims c ON c.session = s.session
		GROUP BY s.session ORDER BY s.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			Session   string `json:"session"`
			StartedAt string `json:"started_at"`
			Claims    int    `json:"claims"`
		}
		if err := rows.Scan(&r.Session, &r.StartedAt, &r.Claims); err != nil {
			return err
		}
		printJSON(w, r)
	}
	return rows.Err()
}

func listClaims(db *sql.DB, w io.Writer, f claimFilter) error {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	q := `SELECT seq,recorded_at,region_id,kind,actor,prev_owner,new_owner,credited,debited,point_value FROM claims WHERE session=?`
	args := []any{f.Session}
	if f.Region != "" {
		q += ` AND region_id=?`
		args = append(args, f.Region)
	}
	if f.Actor != "" {
		q += ` AND actor=?`
		args = append(args, f.Actor)
	}
	q += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, f.Limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			Seq        int    `json:"seq"`
			RecordedAt string `json:"recorded_at"`
			RegionID   string `json:"region_id"`
			Kind       string `json:"kind"`
			Actor      string `json:"actor"`
			PrevOwner  string `json:"prev_owner,omitempty"`
			NewOwner   string `json:"new_owner,omitempty"`
			Credited   int    `json:"credited"`
			Debited    int    `json:"debited"`
			PointValue int    `json:"point_value"`
		}
		if err := rows.Scan(&r.Seq, &r.RecordedAt, &r.RegionID, &r.Kind, &r.Actor, &r.PrevOwner, &r.NewOwner, &r.Credited, &r.Debited, &r.PointValue); err != nil {
			return err
		}
		printJSON(w, r)
	}
	return rows.Err()
}

// latestScores prints every player's totals at the session's last snapshot.
func latestScores(db *sql.DB, w io.Writer, session string) error {
	rows, err := db.Query(`SELECT seq,player,score,claimed FROM snapshots
		WHERE session=? AND seq=(SELECT MAX(seq) FROM snapshots WHERE session=?)
		ORDER BY player`, session, session)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			Seq     int    `json:"seq"`
			Player  string `json:"player"`
			Score   int    `json:"score"`
			Claimed int    `json:"claimed_areas"`
		}
		if err := rows.Scan(&r.Seq, &r.Player, &r.Score, &r.Claimed); err != nil {
			return err
		}
		printJSON(w, r)
	}
	return rows.Err()
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
