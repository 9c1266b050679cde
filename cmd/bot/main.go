package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"riskyrun.app/internal/protocol"
)

func main() {
	var (
		url       = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name      = flag.String("name", "bot", "client name")
		interval  = flag.Duration("interval", 2*time.Second, "delay between moves")
		clickRate = flag.Float64("click_rate", 0.5, "probability a hover is committed with a click")
		seed      = flag.Int64("seed", 0, "random seed (0 = time based)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil || welcome.Type != protocol.TypeWelcome {
		logger.Fatalf("expected WELCOME: %v", err)
	}
	logger.Printf("WELCOME session=%s players=%d regions=%d", welcome.SessionID, len(welcome.Players), len(welcome.Regions))
	if len(welcome.Players) == 0 || len(welcome.Regions) == 0 {
		logger.Fatalf("nothing to play")
	}

	// Reader: log rejections and the scoreboard after each commit.
	go func() {
		var lastCommit protocol.CommitView
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				logger.Printf("read: %v", err)
				os.Exit(0)
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeAck:
				var ack protocol.AckMsg
				if err := json.Unmarshal(msg, &ack); err == nil && !ack.Accepted {
					logger.Printf("rejected %s: %s %s", ack.AckFor, ack.Code, ack.Message)
				}
			case protocol.TypeState:
				var st protocol.StateMsg
				if err := json.Unmarshal(msg, &st); err != nil || st.LastCommit == nil || *st.LastCommit == lastCommit {
					continue
				}
				lastCommit = *st.LastCommit
				logger.Printf("%s %s by %s: %s", lastCommit.Kind, lastCommit.RegionID, lastCommit.Actor, scoreLine(st.Scoreboard))
			}
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(*seed))
	tick := time.NewTicker(*interval)
	defer tick.Stop()

	n := 0
	send := func(kind, regionID, playerID string) {
		n++
		ev := protocol.EventMsg{
			Type:            protocol.TypeEvent,
			ProtocolVersion: protocol.Version,
			ID:              fmt.Sprintf("%s_%d", *name, n),
			Kind:            kind,
			RegionID:        regionID,
			PlayerID:        playerID,
		}
		if err := conn.WriteJSON(ev); err != nil {
			logger.Fatalf("send EVENT: %v", err)
		}
	}

	for {
		select {
		case <-stop:
			return
		case <-tick.C:
		}
		p := welcome.Players[r.Intn(len(welcome.Players))]
		reg := welcome.Regions[r.Intn(len(welcome.Regions))]
		send(protocol.EventSelectPlayer, "", p.ID)
		send(protocol.EventHoverEnter, reg.ID, "")
		if r.Float64() < *clickRate {
			send(protocol.EventClick, reg.ID, "")
		}
		send(protocol.EventHoverExit, reg.ID, "")
	}
}

func scoreLine(rows []protocol.ScoreView) string {
	s := ""
	for i, row := range rows {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%d/%d", row.PlayerID, row.Score, row.ClaimedAreas)
	}
	return s
}
