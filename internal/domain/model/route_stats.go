package model

// RouteStats ルート全体の距離と所要時間の集計
type RouteStats struct {
	TotalDistanceKm   float64 `json:"total_distance_km"`
	TotalWalkMinutes  int     `json:"total_walk_minutes"`
	TotalDwellMinutes int     `json:"total_dwell_minutes"`
	TotalMinutes      int     `json:"total_minutes"`
	StopCount         int     `json:"stop_count"`
	SkippedLegs       int     `json:"skipped_legs"`
	Legs              []Leg   `json:"legs"`
}

// Leg 連続する2ストップ間の区間
type Leg struct {
	FromStopID  string  `json:"from_stop_id"`
	ToStopID    string  `json:"to_stop_id"`
	DistanceKm  float64 `json:"distance_km"`
	WalkMinutes int     `json:"walk_minutes"`
	Skipped     bool    `json:"skipped"` // どちらかの座標が未定義
}
