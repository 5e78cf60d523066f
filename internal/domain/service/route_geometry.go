package service

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"TourRoute-App/internal/domain/helper"
	"TourRoute-App/internal/domain/model"
)

// BuildRouteLineString 実効座標を順に結んだ直線ルート（座標なしのストップは除く）
func BuildRouteLineString(stops []model.Stop) orb.LineString {
	ordered := make([]model.Stop, len(stops))
	copy(ordered, stops)
	model.SortStops(ordered)

	line := orb.LineString{}
	for _, st := range ordered {
		if p, ok := helper.EffectivePosition(st); ok {
			line = append(line, p)
		}
	}
	return line
}

// RouteBound ルートを囲む境界ボックス
func RouteBound(stops []model.Stop) (orb.Bound, bool) {
	line := BuildRouteLineString(stops)
	if len(line) == 0 {
		return orb.Bound{}, false
	}
	return line.Bound(), true
}

// RouteFeatureCollection 地図表示用のGeoJSON（ストップのPointとルートのLineString）
func RouteFeatureCollection(stops []model.Stop) *geojson.FeatureCollection {
	ordered := make([]model.Stop, len(stops))
	copy(ordered, stops)
	model.SortStops(ordered)

	fc := geojson.NewFeatureCollection()
	for _, st := range ordered {
		p, ok := helper.EffectivePosition(st)
		if !ok {
			continue
		}
		f := geojson.NewFeature(p)
		f.Properties["stop_id"] = st.ID
		f.Properties["poi_id"] = st.POIID
		f.Properties["order_index"] = st.OrderIndex
		f.Properties["overridden"] = helper.IsOverridden(st)
		f.Properties["title"] = st.DisplayTitle()
		fc.Append(f)
	}

	line := BuildRouteLineString(ordered)
	if len(line) >= 2 {
		f := geojson.NewFeature(line)
		f.Properties["kind"] = "route"
		fc.Append(f)
	}
	if bound, ok := RouteBound(ordered); ok {
		fc.BBox = geojson.NewBBox(bound)
	}
	return fc
}
