package model

// LeaderboardEntry is a duel victory ranked by solve time, fastest first.
type LeaderboardEntry struct {
	Rank    int    `json:"rank"`
	UserID  string `json:"user_id"`
	Seconds int    `json:"seconds"`
}
