package common

// VersionResponse answers system.getVersion.
type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Type    string `json:"type,omitempty"`
}

// StatusResponse answers stream.status.
type StatusResponse struct {
	Destroyed          bool    `json:"destroyed"`
	Intervals          int     `json:"intervals"`
	Frames             int     `json:"frames"`
	ReadyFrames        int     `json:"ready_frames"`
	FailedFrames       int     `json:"failed_frames"`
	MemoryUsageBytes   int64   `json:"memory_usage_bytes"`
	MemoryBudgetBytes  int64   `json:"memory_budget_bytes"`
	AverageLoadTimeMs  float64 `json:"average_load_time_ms"`
	LastPresentedIndex int     `json:"last_presented_index"`
}

// FrameInfo describes one cache slot.
type FrameInfo struct {
	Index         int     `json:"index"`
	Locator       string  `json:"locator"`
	State         string  `json:"state"`
	ReadyDuration float64 `json:"ready_duration_ms,omitempty"`
	ByteSize      int64   `json:"byte_size,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// FramesResponse answers stream.frames.
type FramesResponse struct {
	Frames []FrameInfo `json:"frames"`
}

// FrameChangedParams is sent with stream.frameChanged.
type FrameChangedParams struct {
	Index   int    `json:"index"`
	Locator string `json:"locator"`
}

// FrameFailedParams is sent with stream.frameFailed.
type FrameFailedParams struct {
	Index   int    `json:"index"`
	Locator string `json:"locator"`
	Error   string `json:"error"`
}
