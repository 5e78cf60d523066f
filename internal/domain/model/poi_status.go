package model

import "time"

// POIStatus POIカタログから見たPOIの公開判定用ステータス
type POIStatus struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	PublishedAt       *time.Time `json:"published_at,omitempty"`
	Lat               *float64   `json:"lat,omitempty"`
	Lon               *float64   `json:"lon,omitempty"`
	DescriptionLength int        `json:"description_length"`
}

// IsPublished POIが公開済みか
func (p *POIStatus) IsPublished() bool {
	return p.PublishedAt != nil
}
