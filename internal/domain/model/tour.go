package model

import (
	"sort"
	"time"
)

// Stop ツアー内で順番付けされたPOIへの参照
type Stop struct {
	ID         string `json:"id" db:"id"`                   // ストップID（POI IDとは別）
	POIID      string `json:"poi_id" db:"poi_id"`           // 参照するPOI
	OrderIndex int    `json:"order_index" db:"order_index"` // 0..n-1 の連番

	// ツアー固有の座標上書き（両方あり or 両方なし）
	OverrideLat *float64 `json:"override_lat,omitempty" db:"override_lat"`
	OverrideLon *float64 `json:"override_lon,omitempty" db:"override_lon"`

	// POIカタログのスナップショット（このエンジンからは読み取り専用）
	POITitle             string     `json:"poi_title"`
	POILat               *float64   `json:"poi_lat,omitempty"`
	POILon               *float64   `json:"poi_lon,omitempty"`
	POIPublishedAt       *time.Time `json:"poi_published_at,omitempty"`
	POIDescriptionLength int        `json:"poi_description_length"`

	TransitionText     *string `json:"transition_text,omitempty" db:"transition_text"`
	TransitionAudioURL *string `json:"transition_audio_url,omitempty" db:"transition_audio_url"`
	DwellSeconds       int     `json:"dwell_seconds" db:"dwell_seconds"`
}

// HasOverride 上書き座標が両方設定されているか
func (s *Stop) HasOverride() bool {
	return s.OverrideLat != nil && s.OverrideLon != nil
}

// ApplyPOIStatus カタログから取得したPOI状態でスナップショットを更新する
func (s *Stop) ApplyPOIStatus(status *POIStatus) {
	if status == nil {
		return
	}
	s.POITitle = status.Title
	s.POILat = status.Lat
	s.POILon = status.Lon
	s.POIPublishedAt = status.PublishedAt
	s.POIDescriptionLength = status.DescriptionLength
}

// DisplayTitle 課題メッセージ用のPOI名（タイトル未取得ならPOI ID）
func (s *Stop) DisplayTitle() string {
	if s.POITitle != "" {
		return s.POITitle
	}
	return s.POIID
}

// Fields 永続化対象のフィールドを取り出す
func (s *Stop) Fields() StopFields {
	return StopFields{
		POIID:              s.POIID,
		OrderIndex:         s.OrderIndex,
		OverrideLat:        s.OverrideLat,
		OverrideLon:        s.OverrideLon,
		TransitionText:     s.TransitionText,
		TransitionAudioURL: s.TransitionAudioURL,
		DwellSeconds:       s.DwellSeconds,
	}
}

// StopFields persistStop に渡すストップの永続化フィールド
type StopFields struct {
	POIID              string   `json:"poi_id" firestore:"poi_id"`
	OrderIndex         int      `json:"order_index" firestore:"order_index"`
	OverrideLat        *float64 `json:"override_lat" firestore:"override_lat"`
	OverrideLon        *float64 `json:"override_lon" firestore:"override_lon"`
	TransitionText     *string  `json:"transition_text" firestore:"transition_text"`
	TransitionAudioURL *string  `json:"transition_audio_url" firestore:"transition_audio_url"`
	DwellSeconds       int      `json:"dwell_seconds" firestore:"dwell_seconds"`
}

// TransitionUpdate 移動区間メタデータの部分更新（nilは変更なし、空文字はクリア）
type TransitionUpdate struct {
	Text         *string `json:"text"`
	AudioURL     *string `json:"audio_url"`
	DwellSeconds *int    `json:"dwell_seconds"`
}

// Tour 順序付きストップと公開状態を持つ集約
type Tour struct {
	ID          string     `json:"id" db:"id"`
	Stops       []Stop     `json:"stops"`
	PublishedAt *time.Time `json:"published_at,omitempty" db:"published_at"`
}

// IsPublished 公開中かどうか
func (t *Tour) IsPublished() bool {
	return t.PublishedAt != nil
}

// SortStops order_index 順に並べる
func SortStops(stops []Stop) {
	sort.SliceStable(stops, func(i, j int) bool {
		return stops[i].OrderIndex < stops[j].OrderIndex
	})
}
