package model

// 距離・時間推定の定数
const (
	EarthRadiusKm         = 6371.0 // 平均地球半径
	WalkingSpeedKmPerHour = 5.0    // 平均歩行速度
)

// DefaultMinDescriptionLength POIカタログ側の説明文最小文字数の既定値
const DefaultMinDescriptionLength = 100

// 公開状態
const (
	PublishStateDraft     = "draft"
	PublishStatePublished = "published"
)

// PublishStateOf ツアーの公開状態名を返す
func PublishStateOf(t *Tour) string {
	if t != nil && t.IsPublished() {
		return PublishStatePublished
	}
	return PublishStateDraft
}
