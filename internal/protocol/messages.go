package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
	// Viewers receive STATE pushes but their EVENTs are rejected.
	ViewOnly bool `json:"view_only,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	SessionID       string       `json:"session_id"`
	Players         []PlayerInfo `json:"players"`
	Regions         []RegionInfo `json:"regions"`
	MinPointValue   int          `json:"min_point_value"`
	MaxPointValue   int          `json:"max_point_value"`
}

type PlayerInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type RegionInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Label int    `json:"label"`
}

// EVENT (client -> server)
type EventMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Kind            string `json:"kind"`
	RegionID        string `json:"region_id,omitempty"`
	PlayerID        string `json:"player_id,omitempty"`
	Points          int    `json:"points,omitempty"`
}

type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	Seq             uint64 `json:"seq,omitempty"`
}

// STATE (server -> client): full board view after every applied event.
type StateMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Seq             uint64       `json:"seq"`
	SelectedPlayer  string       `json:"selected_player"`
	PreviewRegion   string       `json:"preview_region,omitempty"`
	Regions         []RegionView `json:"regions"`
	Scoreboard      []ScoreView  `json:"scoreboard"`
	LastCommit      *CommitView  `json:"last_commit,omitempty"`
}

type RegionView struct {
	RegionID     string  `json:"region_id"`
	Owner        string  `json:"owner,omitempty"`
	FillColor    string  `json:"fill_color"`
	FillOpacity  float64 `json:"fill_opacity"`
	StrokeWeight int     `json:"stroke_weight"`
	PointValue   int     `json:"point_value"`
	PointLabel   string  `json:"point_label"`
	Previewing   bool    `json:"previewing,omitempty"`
}

type ScoreView struct {
	PlayerID     string `json:"player_id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	Score        int    `json:"score"`
	ClaimedAreas int    `json:"claimed_areas"`
	IsPreview    bool   `json:"is_preview"`
	ScoreDelta   string `json:"score_delta,omitempty"`
	ClaimedDelta string `json:"claimed_delta,omitempty"`
}

type CommitView struct {
	RegionID  string `json:"region_id"`
	Kind      string `json:"kind"`
	Actor     string `json:"actor"`
	PrevOwner string `json:"prev_owner,omitempty"`
	NewOwner  string `json:"new_owner,omitempty"`
	Credited  int    `json:"credited"`
	Debited   int    `json:"debited"`
}
