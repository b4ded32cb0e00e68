package models

// SessionCreateRequest creates a new streaming session
type SessionCreateRequest struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Framerate     int    `json:"framerate"`
	VideoCodec    string `json:"videoCodec"`
	QualityPreset string `json:"qualityPreset"`
	BitrateKbps   int    `json:"bitrateKbps"`

	SlicedEncoding bool `json:"slicedEncoding"`
	IntraRefresh   bool `json:"intraRefresh"`

	// Per-session overrides of the server defaults
	SourceKind string `json:"sourceKind"`
	Protocol   string `json:"protocol"`
	StreamKey  string `json:"streamKey"`
	LatencyMS  int    `json:"latencyMs"`
}

// SessionStartRequest names the destination for an idle session
type SessionStartRequest struct {
	Host string `json:"host" binding:"required"`
	Port int    `json:"port" binding:"required"`
}

// QualityUpdateRequest switches the quality preset of a live session
type QualityUpdateRequest struct {
	Preset string `json:"preset" binding:"required"`
}

// SessionInfo describes one session in API responses
type SessionInfo struct {
	ID     string       `json:"id"`
	State  EngineState  `json:"state"`
	Config StreamConfig `json:"config"`
	Stats  StreamStats  `json:"stats"`
}

// SessionListResponse lists the registered sessions
type SessionListResponse struct {
	Sessions []SessionInfo `json:"sessions"`
	Total    int           `json:"total"`
}
