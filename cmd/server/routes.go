package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"riskyrun.app/internal/board"
	"riskyrun.app/internal/game/history"
	"riskyrun.app/internal/protocol"
	"riskyrun.app/internal/transport/ws"
)

type routeDeps struct {
	Board    *board.Board
	Index    runtimeIndex
	Journals []journalStatser
	Logger   *log.Logger

	EnableAdminHTTP bool
	EnablePprofHTTP bool
}

// adminState is the /admin/v1/state body.
type adminState struct {
	Board board.Metrics     `json:"board"`
	Index any               `json:"index,omitempty"`
	State protocol.StateMsg `json:"state"`
}

func newMux(d routeDeps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, d.Board.Metrics(), d.Index, d.Journals)
	})
	mux.HandleFunc("/v1/history", func(rw http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		snaps, err := d.Board.History(ctx)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if snaps == nil {
			snaps = []history.Snapshot{}
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(snaps)
	})
	mux.HandleFunc("/v1/export/"+history.FileName(history.MetricScore), exportHandler(d.Board, history.MetricScore))
	mux.HandleFunc("/v1/export/"+history.FileName(history.MetricClaimed), exportHandler(d.Board, history.MetricClaimed))

	if d.EnableAdminHTTP {
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			st, err := d.Board.State(ctx)
			if err != nil {
				http.Error(rw, board.ErrorCode(err), http.StatusServiceUnavailable)
				return
			}
			resp := adminState{Board: d.Board.Metrics(), State: st}
			if d.Index != nil {
				resp.Index = d.Index.Stats()
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(resp)
		})
	} else {
		d.Logger.Printf("admin endpoints disabled (RR_ENABLE_ADMIN_HTTP=false)")
	}
	if d.EnablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(d.Board, log.New(d.Logger.Writer(), "[ws] ", d.Logger.Flags())).Handler())
	return mux
}

func exportHandler(b *board.Board, metric history.Metric) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		var buf strings.Builder
		if err := b.ExportCSV(ctx, &buf, metric); err != nil {
			if errors.Is(err, history.ErrEmpty) {
				http.Error(rw, "no history recorded yet", http.StatusNotFound)
				return
			}
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "text/csv; charset=utf-8")
		rw.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", history.FileName(metric)))
		_, _ = rw.Write([]byte(buf.String()))
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
