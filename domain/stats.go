package domain

// RelayStats is a point-in-time view of the relay counters.
type RelayStats struct {
	Connections int    `json:"connections"`
	Sessions    int    `json:"sessions"`
	Relayed     uint64 `json:"relayed"`
	Delivered   uint64 `json:"delivered"`
	Rejected    uint64 `json:"rejected"`
	Dropped     uint64 `json:"dropped"`
}
