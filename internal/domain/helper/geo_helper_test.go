package helper

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	t.Run("同一地点は0", func(t *testing.T) {
		assert.Equal(t, 0.0, DistanceKm(54.710, 20.510, 54.710, 20.510))
	})

	t.Run("対称性", func(t *testing.T) {
		pairs := [][4]float64{
			{54.710, 20.510, 54.712, 20.520},
			{35.6812, 139.7671, 34.7025, 135.4959},
			{-33.8688, 151.2093, 51.5074, -0.1278},
			{0, 179.9, 0, -179.9},
		}
		for _, p := range pairs {
			ab := DistanceKm(p[0], p[1], p[2], p[3])
			ba := DistanceKm(p[2], p[3], p[0], p[1])
			assert.InDelta(t, ab, ba, 1e-9)
			assert.Greater(t, ab, 0.0)
		}
	})

	t.Run("カリーニングラード市内の2点", func(t *testing.T) {
		d := DistanceKm(54.710, 20.510, 54.712, 20.520)
		assert.InDelta(t, 0.68, d, 0.02)
	})

	t.Run("緯度1度はおよそ111km", func(t *testing.T) {
		d := DistanceKm(0, 0, 1, 0)
		assert.InDelta(t, 111.19, d, 0.01)
	})
}

func TestPositionDistanceKm(t *testing.T) {
	a := orb.Point{20.510, 54.710}
	b := orb.Point{20.520, 54.712}
	assert.InDelta(t, DistanceKm(54.710, 20.510, 54.712, 20.520), PositionDistanceKm(a, b), 1e-12)
}

func TestWalkMinutes(t *testing.T) {
	tests := []struct {
		name string
		km   float64
		want int
	}{
		{"0km", 0, 0},
		{"5kmは60分", 5, 60},
		{"1kmは12分", 1, 12},
		{"四捨五入", 0.68, 8},
		{"負の入力は0", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WalkMinutes(tt.km))
		})
	}
}

func TestIsValidCoordinate(t *testing.T) {
	assert.True(t, IsValidCoordinate(54.7, 20.5))
	assert.True(t, IsValidCoordinate(-90, 180))
	assert.False(t, IsValidCoordinate(91, 0))
	assert.False(t, IsValidCoordinate(0, -180.5))
	assert.False(t, IsValidCoordinate(math.NaN(), 0))
}
