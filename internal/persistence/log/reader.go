package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"riskyrun.app/internal/board"
	"riskyrun.app/internal/game/history"
)

// ReadJSONL decodes every line of one .jsonl.zst file and hands the raw
// bytes to fn. Iteration stops at the first error fn returns.
func ReadJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return sc.Err()
}

// JournalFiles lists the hourly files of journal name under dataDir, oldest
// hour first.
func JournalFiles(dataDir, name string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dataDir, name, name+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadJournal decodes every record of journal name in write order.
// A missing journal reads as empty.
func ReadJournal[T any](dataDir, name string) ([]T, error) {
	files, err := JournalFiles(dataDir, name)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, p := range files {
		err := ReadJSONL(p, func(line []byte) error {
			var v T
			if err := json.Unmarshal(line, &v); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(p), err)
			}
			out = append(out, v)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func ReadHistory(dataDir string) ([]history.Snapshot, error) {
	return ReadJournal[history.Snapshot](dataDir, HistoryJournal)
}

func ReadClaims(dataDir string) ([]board.ClaimEntry, error) {
	return ReadJournal[board.ClaimEntry](dataDir, ClaimJournal)
}
