package helper

import (
	"github.com/paulmach/orb"

	"TourRoute-App/internal/domain/model"
)

// EffectivePosition ストップの実効座標を返す
// 上書きが両方あれば上書き、なければPOIの座標、どちらもなければ false
func EffectivePosition(stop model.Stop) (orb.Point, bool) {
	if stop.OverrideLat != nil && stop.OverrideLon != nil {
		return orb.Point{*stop.OverrideLon, *stop.OverrideLat}, true
	}
	if stop.POILat != nil && stop.POILon != nil {
		return orb.Point{*stop.POILon, *stop.POILat}, true
	}
	return orb.Point{}, false
}

// IsOverridden 実効座標が上書き由来か
func IsOverridden(stop model.Stop) bool {
	return stop.HasOverride()
}
