package main

import (
	"fmt"
	"io"

	"riskyrun.app/internal/board"
	persistlog "riskyrun.app/internal/persistence/log"
)

type journalStatser interface {
	Stats() persistlog.JournalStats
}

// writeMetrics emits the minimal Prometheus exposition format.
func writeMetrics(w io.Writer, m board.Metrics, idx runtimeIndex, journals []journalStatser) {
	fmt.Fprintf(w, "# HELP riskyrun_board_commits_total Committed claims, steals and unclaims.\n")
	fmt.Fprintf(w, "# TYPE riskyrun_board_commits_total counter\n")
	fmt.Fprintf(w, "riskyrun_board_commits_total %d\n", m.Commits)

	fmt.Fprintf(w, "# HELP riskyrun_board_previews_total Hover previews computed.\n")
	fmt.Fprintf(w, "# TYPE riskyrun_board_previews_total counter\n")
	fmt.Fprintf(w, "riskyrun_board_previews_total %d\n", m.Previews)

	fmt.Fprintf(w, "# HELP riskyrun_board_rejected_total Events rejected by the board.\n")
	fmt.Fprintf(w, "# TYPE riskyrun_board_rejected_total counter\n")
	fmt.Fprintf(w, "riskyrun_board_rejected_total %d\n", m.Rejected)

	fmt.Fprintf(w, "# HELP riskyrun_board_subscribers Connected STATE subscribers.\n")
	fmt.Fprintf(w, "# TYPE riskyrun_board_subscribers gauge\n")
	fmt.Fprintf(w, "riskyrun_board_subscribers %d\n", m.Subscribers)

	fmt.Fprintf(w, "# HELP riskyrun_board_queue_depth Board inbox backlog depth.\n")
	fmt.Fprintf(w, "# TYPE riskyrun_board_queue_depth gauge\n")
	fmt.Fprintf(w, "riskyrun_board_queue_depth %d\n", m.InboxDepth)

	if len(journals) > 0 {
		stats := make([]persistlog.JournalStats, 0, len(journals))
		for _, j := range journals {
			stats = append(stats, j.Stats())
		}
		fmt.Fprintf(w, "# HELP riskyrun_journal_lines_total Records appended to the zstd journal.\n")
		fmt.Fprintf(w, "# TYPE riskyrun_journal_lines_total counter\n")
		for _, s := range stats {
			fmt.Fprintf(w, "riskyrun_journal_lines_total{journal=%q} %d\n", s.Name, s.Lines)
		}
		fmt.Fprintf(w, "# HELP riskyrun_journal_bytes_total Uncompressed bytes appended to the journal.\n")
		fmt.Fprintf(w, "# TYPE riskyrun_journal_bytes_total counter\n")
		for _, s := range stats {
			fmt.Fprintf(w, "riskyrun_journal_bytes_total{journal=%q} %d\n", s.Name, s.Bytes)
		}
		fmt.Fprintf(w, "# HELP riskyrun_journal_files_opened_total Hourly journal files opened.\n")
		fmt.Fprintf(w, "# TYPE riskyrun_journal_files_opened_total counter\n")
		for _, s := range stats {
			fmt.Fprintf(w, "riskyrun_journal_files_opened_total{journal=%q} %d\n", s.Name, s.Files)
		}
		fmt.Fprintf(w, "# HELP riskyrun_journal_write_errors_total Failed journal appends.\n")
		fmt.Fprintf(w, "# TYPE riskyrun_journal_write_errors_total counter\n")
		for _, s := range stats {
			fmt.Fprintf(w, "riskyrun_journal_write_errors_total{journal=%q} %d\n", s.Name, s.Errors)
		}
	}

	if idx == nil {
		return
	}
	s := idx.Stats()
	fmt.Fprintf(w, "# HELP riskyrun_index_queue_depth Current index writer queue depth.\n")
	fmt.Fprintf(w, "# TYPE riskyrun_index_queue_depth gauge\n")
	fmt.Fprintf(w, "riskyrun_index_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(w, "# HELP riskyrun_index_queue_capacity Index writer queue capacity.\n")
	fmt.Fprintf(w, "# TYPE riskyrun_index_queue_capacity gauge\n")
	fmt.Fprintf(w, "riskyrun_index_queue_capacity %d\n", s.QueueCapacity)

	fmt.Fprintf(w, "# HELP riskyrun_index_dropped_total Index writes dropped because the queue was full.\n")
	fmt.Fprintf(w, "# TYPE riskyrun_index_dropped_total counter\n")
	fmt.Fprintf(w, "riskyrun_index_dropped_total{kind=%q} %d\n", "snapshot", s.DropSnapshotTotal)
	fmt.Fprintf(w, "riskyrun_index_dropped_total{kind=%q} %d\n", "claim", s.DropClaimTotal)

	fmt.Fprintf(w, "# HELP riskyrun_index_write_errors_total Failed index transactions.\n")
	fmt.Fprintf(w, "# TYPE riskyrun_index_write_errors_total counter\n")
	fmt.Fprintf(w, "riskyrun_index_write_errors_total %d\n", s.WriteErrorTotal)
}
