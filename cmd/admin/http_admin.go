package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"riskyrun.app/internal/protocol"
)

type adminState struct {
	Board struct {
		Commits     uint64
		Previews    uint64
		Rejected    uint64
		Subscribers int64
		InboxDepth  int
	} `json:"board"`
	Index json.RawMessage   `json:"index,omitempty"`
	State protocol.StateMsg `json:"state"`
}

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	raw := fs.Bool("json", false, "print the raw response body")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/state"
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		fmt.Fprintf(os.Stderr, "%s: %s\n", resp.Status, strings.TrimSpace(string(b)))
		os.Exit(1)
	}
	if *raw {
		fmt.Println(string(b))
		return
	}
	var st adminState
	if err := json.Unmarshal(b, &st); err != nil {
		fmt.Fprintln(os.Stderr, "decode:", err)
		os.Exit(1)
	}
	printState(os.Stdout, st)
}

// printState renders the scoreboard the way the board UI shows it, with
// pending preview deltas in parentheses.
func printState(w io.Writer, s adminState) {
	st := s.State
	fmt.Fprintf(w, "seq %d  selected %s", st.Seq, st.SelectedPlayer)
	if st.PreviewRegion != "" {
		fmt.Fprintf(w, "  previewing %s", st.PreviewRegion)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAYER\tCOLOR\tSCORE\tAREAS")
	for _, r := range st.Scoreboard {
		score, areas := fmt.Sprint(r.Score), fmt.Sprint(r.ClaimedAreas)
		if r.IsPreview {
			score += " (" + r.ScoreDelta + ")"
			areas += " (" + r.ClaimedDelta + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.Color, score, areas)
	}
	_ = tw.Flush()

	owned := 0
	for _, r := range st.Regions {
		if r.Owner != "" {
			owned++
		}
	}
	fmt.Fprintf(w, "regions %d/%d claimed\n", owned, len(st.Regions))
	if c := st.LastCommit; c != nil {
		fmt.Fprintf(w, "last %s %s by %s (+%d/-%d)\n", c.Kind, c.RegionID, c.Actor, c.Credited, c.Debited)
	}
	fmt.Fprintf(w, "commits %d  previews %d  rejected %d  subscribers %d\n",
		s.Board.Commits, s.Board.Previews, s.Board.Rejected, s.Board.Subscribers)
}
