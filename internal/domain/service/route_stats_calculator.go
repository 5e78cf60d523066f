package service

import (
	"TourRoute-App/internal/domain/helper"
	"TourRoute-App/internal/domain/model"
)

// RouteStatsCalculator ストップ列から距離・所要時間を集計する
type RouteStatsCalculator struct{}

// NewRouteStatsCalculator は新しいRouteStatsCalculatorを作成
func NewRouteStatsCalculator() *RouteStatsCalculator {
	return &RouteStatsCalculator{}
}

// Compute はルート統計を計算する
// 座標が欠けている区間はエラーにせず0として扱い、Skipped として記録する
func (c *RouteStatsCalculator) Compute(stops []model.Stop) model.RouteStats {
	ordered := make([]model.Stop, len(stops))
	copy(ordered, stops)
	model.SortStops(ordered)

	stats := model.RouteStats{
		StopCount: len(ordered),
		Legs:      make([]model.Leg, 0, max(len(ordered)-1, 0)),
	}

	for i := 0; i+1 < len(ordered); i++ {
		from, to := ordered[i], ordered[i+1]
		leg := model.Leg{FromStopID: from.ID, ToStopID: to.ID}

		a, okA := helper.EffectivePosition(from)
		b, okB := helper.EffectivePosition(to)
		if !okA || !okB {
			leg.Skipped = true
			stats.SkippedLegs++
			stats.Legs = append(stats.Legs, leg)
			continue
		}

		leg.DistanceKm = helper.PositionDistanceKm(a, b)
		leg.WalkMinutes = helper.WalkMinutes(leg.DistanceKm)
		stats.TotalDistanceKm += leg.DistanceKm
		stats.TotalWalkMinutes += leg.WalkMinutes
		stats.Legs = append(stats.Legs, leg)
	}

	totalDwellSeconds := 0
	for _, st := range ordered {
		totalDwellSeconds += st.DwellSeconds
	}
	stats.TotalDwellMinutes = totalDwellSeconds / 60
	stats.TotalMinutes = stats.TotalWalkMinutes + stats.TotalDwellMinutes

	return stats
}
