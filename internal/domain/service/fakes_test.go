package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TourRoute-App/internal/domain/model"
)

var errStoreDown = errors.New("store unavailable")

type fakeOrderRepo struct {
	calls [][]string
	err   error
}

func (f *fakeOrderRepo) PersistOrder(ctx context.Context, tourID string, ids []string) error {
	cp := make([]string, len(ids))
	copy(cp, ids)
	f.calls = append(f.calls, cp)
	return f.err
}

func (f *fakeOrderRepo) last() []string {
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

type fakePOIRepo struct {
	statuses map[string]*model.POIStatus
	err      error
}

func (f *fakePOIRepo) GetPOIStatus(ctx context.Context, poiID string) (*model.POIStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	st, ok := f.statuses[poiID]
	if !ok {
		return nil, fmt.Errorf("POI %s: %w", poiID, model.ErrNotFound)
	}
	cp := *st
	return &cp, nil
}

type fakeStateRepo struct {
	calls []*time.Time
	err   error
}

func (f *fakeStateRepo) SetTourPublishState(ctx context.Context, tourID string, publishedAt *time.Time) error {
	f.calls = append(f.calls, publishedAt)
	return f.err
}

func f64(v float64) *float64 { return &v }

func longDescription() int { return model.DefaultMinDescriptionLength + 20 }

func publishedPOI(id, title string, lat, lon float64) *model.POIStatus {
	published := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	return &model.POIStatus{
		ID:                id,
		Title:             title,
		PublishedAt:       &published,
		Lat:               f64(lat),
		Lon:               f64(lon),
		DescriptionLength: longDescription(),
	}
}

func stopsFor(ids ...string) []model.Stop {
	stops := make([]model.Stop, len(ids))
	for i, id := range ids {
		stops[i] = model.Stop{ID: id, POIID: "poi-" + id, OrderIndex: i}
	}
	return stops
}
