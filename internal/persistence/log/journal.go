package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"

	"riskyrun.app/internal/board"
	"riskyrun.app/internal/game/history"
)

const (
	HistoryJournal = "history"
	ClaimJournal   = "claims"

	hourLayout = "2006-01-02-15"
)

// JournalStats counts what one journal has written since it was opened.
type JournalStats struct {
	Name   string
	Lines  uint64
	Bytes  uint64
	Files  uint64
	Errors uint64
}

// Journal appends records of one type as JSON lines to hourly zstd files
// <dataDir>/<name>/<name>-YYYY-MM-DD-HH.jsonl.zst. Reopening an hour appends
// a new zstd frame to the same file.
type Journal[T any] struct {
	name string
	dir  string
	now  func() time.Time

	mu   sync.Mutex
	hour string
	f    *os.File
	enc  *zstd.Encoder
	bw   *bufio.Writer

	lines, bytes, files, errs atomic.Uint64
}

func NewJournal[T any](dataDir, name string) *Journal[T] {
	return &Journal[T]{
		name: name,
		dir:  filepath.Join(dataDir, name),
		now:  time.Now,
	}
}

func (j *Journal[T]) Append(v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		j.errs.Add(1)
		return err
	}
	b = append(b, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writeLocked(b); err != nil {
		j.errs.Add(1)
		return err
	}
	j.lines.Add(1)
	j.bytes.Add(uint64(len(b)))
	return nil
}

func (j *Journal[T]) writeLocked(line []byte) error {
	if hour := j.now().UTC().Format(hourLayout); hour != j.hour {
		if err := j.openLocked(hour); err != nil {
			return err
		}
	}
	if _, err := j.bw.Write(line); err != nil {
		return err
	}
	return j.bw.Flush()
}

func (j *Journal[T]) openLocked(hour string) error {
	if err := j.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(journalPath(j.dir, j.name, hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	j.f, j.enc, j.hour = f, enc, hour
	j.bw = bufio.NewWriterSize(enc, 128*1024)
	j.files.Add(1)
	return nil
}

func (j *Journal[T]) closeLocked() error {
	var err error
	if j.bw != nil {
		_ = j.bw.Flush()
		j.bw = nil
	}
	if j.enc != nil {
		err = j.enc.Close()
		j.enc = nil
	}
	if j.f != nil {
		_ = j.f.Close()
		j.f = nil
	}
	j.hour = ""
	return err
}

// Close finishes the current frame. The journal reopens on the next Append.
func (j *Journal[T]) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeLocked()
}

func (j *Journal[T]) Stats() JournalStats {
	return JournalStats{
		Name:   j.name,
		Lines:  j.lines.Load(),
		Bytes:  j.bytes.Load(),
		Files:  j.files.Load(),
		Errors: j.errs.Load(),
	}
}

func journalPath(dir, name, hour string) string {
	return filepath.Join(dir, name+"-"+hour+".jsonl.zst")
}

// HistoryLogger journals every score/area snapshot.
type HistoryLogger struct{ *Journal[history.Snapshot] }

func NewHistoryLogger(dataDir string) *HistoryLogger {
	return &HistoryLogger{NewJournal[history.Snapshot](dataDir, HistoryJournal)}
}

func (l *HistoryLogger) WriteSnapshot(s history.Snapshot) error { return l.Append(s) }

// ClaimLogger writes one audit entry per committed claim.
type ClaimLogger struct{ *Journal[board.ClaimEntry] }

func NewClaimLogger(dataDir string) *ClaimLogger {
	return &ClaimLogger{NewJournal[board.ClaimEntry](dataDir, ClaimJournal)}
}

func (l *ClaimLogger) WriteClaim(e board.ClaimEntry) error { return l.Append(e) }
