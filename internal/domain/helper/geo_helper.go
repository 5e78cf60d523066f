package helper

import (
	"math"

	"github.com/paulmach/orb"

	"TourRoute-App/internal/domain/model"
)

// DistanceKm は2地点間の大圏距離を計算する (km, haversine)
func DistanceKm(latA, lonA, latB, lonB float64) float64 {
	lat1 := latA * math.Pi / 180
	lng1 := lonA * math.Pi / 180
	lat2 := latB * math.Pi / 180
	lng2 := lonB * math.Pi / 180
	dLat := lat2 - lat1
	dLng := lng2 - lng1
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return model.EarthRadiusKm * c
}

// PositionDistanceKm は orb.Point ([lon, lat]) 同士の距離を計算する (km)
func PositionDistanceKm(a, b orb.Point) float64 {
	return DistanceKm(a.Lat(), a.Lon(), b.Lat(), b.Lon())
}

// WalkMinutes は徒歩時速5kmを仮定した所要分数
func WalkMinutes(km float64) int {
	if km <= 0 {
		return 0
	}
	return int(math.Round(km / model.WalkingSpeedKmPerHour * 60))
}

// IsValidCoordinate 緯度経度が有効範囲内か
func IsValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
