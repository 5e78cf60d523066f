package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TourRoute-App/internal/domain/model"
)

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func twoStopTour() *model.Tour {
	return &model.Tour{
		ID: "tour-1",
		Stops: []model.Stop{
			{ID: "s1", POIID: "cathedral", OrderIndex: 0},
			{ID: "s2", POIID: "fishvillage", OrderIndex: 1},
		},
	}
}

func twoPOICatalog() *fakePOIRepo {
	return &fakePOIRepo{statuses: map[string]*model.POIStatus{
		"cathedral":   publishedPOI("cathedral", "Cathedral", 54.710, 20.510),
		"fishvillage": publishedPOI("fishvillage", "Fish Village", 54.712, 20.520),
	}}
}

func newGate(pois *fakePOIRepo, state *fakeStateRepo) *PublishGate {
	return NewPublishGate(pois, state, model.DefaultMinDescriptionLength).WithClock(func() time.Time { return fixedNow })
}

func TestPublishGate_CheckPublishability(t *testing.T) {
	ctx := context.Background()

	t.Run("全POIが条件を満たせば公開可能", func(t *testing.T) {
		gate := newGate(twoPOICatalog(), &fakeStateRepo{})
		tour := twoStopTour()

		report, err := gate.CheckPublishability(ctx, tour)
		require.NoError(t, err)
		assert.True(t, report.CanPublish)
		assert.Equal(t, []string{}, report.Issues)

		assert.Equal(t, "Cathedral", tour.Stops[0].POITitle)
		require.NotNil(t, tour.Stops[1].POILat)
		assert.Equal(t, 54.712, *tour.Stops[1].POILat)
	})

	t.Run("ストップなしは公開不可", func(t *testing.T) {
		gate := newGate(twoPOICatalog(), &fakeStateRepo{})

		report, err := gate.CheckPublishability(ctx, &model.Tour{ID: "empty"})
		require.NoError(t, err)
		assert.False(t, report.CanPublish)
		assert.Equal(t, []string{"Tour has no stops"}, report.Issues)
	})

	t.Run("未公開POIは1件の課題", func(t *testing.T) {
		pois := twoPOICatalog()
		pois.statuses["fishvillage"].PublishedAt = nil
		gate := newGate(pois, &fakeStateRepo{})

		report, err := gate.CheckPublishability(ctx, twoStopTour())
		require.NoError(t, err)
		assert.False(t, report.CanPublish)
		assert.Equal(t, []string{"POI Fish Village is not published"}, report.Issues)
	})

	t.Run("失敗条件ごとに1件ずつ", func(t *testing.T) {
		pois := twoPOICatalog()
		bad := pois.statuses["cathedral"]
		bad.PublishedAt = nil
		bad.Lat, bad.Lon = nil, nil
		bad.DescriptionLength = 10
		pois.statuses["fishvillage"].DescriptionLength = model.DefaultMinDescriptionLength - 1
		gate := newGate(pois, &fakeStateRepo{})

		report, err := gate.CheckPublishability(ctx, twoStopTour())
		require.NoError(t, err)
		assert.False(t, report.CanPublish)
		assert.Equal(t, []string{
			"POI Cathedral is not published",
			"POI Cathedral has no coordinates",
			"POI Cathedral has a description shorter than the minimum length",
			"POI Fish Village has a description shorter than the minimum length",
		}, report.Issues)
	})

	t.Run("上書き座標があれば座標なしにならない", func(t *testing.T) {
		pois := twoPOICatalog()
		pois.statuses["cathedral"].Lat = nil
		pois.statuses["cathedral"].Lon = nil
		gate := newGate(pois, &fakeStateRepo{})
		tour := twoStopTour()
		tour.Stops[0].OverrideLat, tour.Stops[0].OverrideLon = f64(54.71), f64(20.51)

		report, err := gate.CheckPublishability(ctx, tour)
		require.NoError(t, err)
		assert.True(t, report.CanPublish)
	})

	t.Run("説明文の最小文字数ちょうどは合格", func(t *testing.T) {
		pois := twoPOICatalog()
		pois.statuses["cathedral"].DescriptionLength = model.DefaultMinDescriptionLength
		gate := newGate(pois, &fakeStateRepo{})

		report, err := gate.CheckPublishability(ctx, twoStopTour())
		require.NoError(t, err)
		assert.True(t, report.CanPublish)
	})

	t.Run("カタログにないPOI", func(t *testing.T) {
		pois := twoPOICatalog()
		delete(pois.statuses, "fishvillage")
		gate := newGate(pois, &fakeStateRepo{})

		report, err := gate.CheckPublishability(ctx, twoStopTour())
		require.NoError(t, err)
		assert.False(t, report.CanPublish)
		assert.Equal(t, []string{
			"POI fishvillage was not found in the catalog",
			"POI fishvillage has no coordinates",
		}, report.Issues)
	})

	t.Run("カタログにないPOIでも上書き座標があれば座標の課題は出ない", func(t *testing.T) {
		pois := twoPOICatalog()
		delete(pois.statuses, "fishvillage")
		gate := newGate(pois, &fakeStateRepo{})
		tour := twoStopTour()
		tour.Stops[1].POILat, tour.Stops[1].POILon = f64(54.712), f64(20.520)
		tour.Stops[1].OverrideLat, tour.Stops[1].OverrideLon = f64(54.713), f64(20.521)

		report, err := gate.CheckPublishability(ctx, tour)
		require.NoError(t, err)
		assert.False(t, report.CanPublish)
		assert.Equal(t, []string{"POI fishvillage was not found in the catalog"}, report.Issues)
		assert.Nil(t, tour.Stops[1].POILat)
	})

	t.Run("カタログにないPOIの古い座標は使わない", func(t *testing.T) {
		pois := twoPOICatalog()
		delete(pois.statuses, "fishvillage")
		gate := newGate(pois, &fakeStateRepo{})
		tour := twoStopTour()
		tour.Stops[1].POITitle = "Fish Village"
		tour.Stops[1].POILat, tour.Stops[1].POILon = f64(54.712), f64(20.520)

		report, err := gate.CheckPublishability(ctx, tour)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"POI fishvillage was not found in the catalog",
			"POI Fish Village has no coordinates",
		}, report.Issues)
	})

	t.Run("カタログ障害はエラー", func(t *testing.T) {
		gate := newGate(&fakePOIRepo{err: errStoreDown}, &fakeStateRepo{})

		report, err := gate.CheckPublishability(ctx, twoStopTour())
		assert.Nil(t, report)
		assert.ErrorIs(t, err, errStoreDown)
	})
}

func TestPublishGate_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("公開日時を設定して保存", func(t *testing.T) {
		state := &fakeStateRepo{}
		gate := newGate(twoPOICatalog(), state)
		tour := twoStopTour()

		require.NoError(t, gate.Publish(ctx, tour))
		require.NotNil(t, tour.PublishedAt)
		assert.Equal(t, fixedNow, *tour.PublishedAt)
		require.Len(t, state.calls, 1)
		assert.Equal(t, fixedNow, *state.calls[0])
		assert.Equal(t, model.PublishStatePublished, model.PublishStateOf(tour))
	})

	t.Run("2回目の公開は何もしない", func(t *testing.T) {
		state := &fakeStateRepo{}
		gate := newGate(twoPOICatalog(), state)
		tour := twoStopTour()
		require.NoError(t, gate.Publish(ctx, tour))
		first := *tour.PublishedAt

		gate.WithClock(func() time.Time { return fixedNow.Add(time.Hour) })
		require.NoError(t, gate.Publish(ctx, tour))
		assert.Equal(t, first, *tour.PublishedAt)
		assert.Len(t, state.calls, 1)
	})

	t.Run("ブロック時は課題一覧つきのエラー", func(t *testing.T) {
		pois := twoPOICatalog()
		pois.statuses["fishvillage"].PublishedAt = nil
		state := &fakeStateRepo{}
		gate := newGate(pois, state)
		tour := twoStopTour()

		err := gate.Publish(ctx, tour)
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrPublishBlocked)

		var blocked *model.PublishBlockedError
		require.True(t, errors.As(err, &blocked))
		assert.Equal(t, []string{"POI Fish Village is not published"}, blocked.Issues)
		assert.Nil(t, tour.PublishedAt)
		assert.Empty(t, state.calls)
	})

	t.Run("公開済みツアーはPOIが後退しても自動で非公開にならない", func(t *testing.T) {
		pois := twoPOICatalog()
		gate := newGate(pois, &fakeStateRepo{})
		tour := twoStopTour()
		require.NoError(t, gate.Publish(ctx, tour))

		pois.statuses["cathedral"].PublishedAt = nil
		err := gate.Publish(ctx, tour)
		assert.ErrorIs(t, err, model.ErrPublishBlocked)
		assert.True(t, tour.IsPublished())
	})

	t.Run("保存失敗でもローカルは公開済み", func(t *testing.T) {
		gate := newGate(twoPOICatalog(), &fakeStateRepo{err: errStoreDown})
		tour := twoStopTour()

		err := gate.Publish(ctx, tour)
		assert.ErrorIs(t, err, model.ErrPersistenceFailure)
		assert.True(t, tour.IsPublished())
	})
}

func TestPublishGate_Unpublish(t *testing.T) {
	ctx := context.Background()

	t.Run("公開日時をクリア", func(t *testing.T) {
		state := &fakeStateRepo{}
		gate := newGate(twoPOICatalog(), state)
		published := fixedNow
		tour := &model.Tour{ID: "tour-1", PublishedAt: &published}

		require.NoError(t, gate.Unpublish(ctx, tour))
		assert.Nil(t, tour.PublishedAt)
		require.Len(t, state.calls, 1)
		assert.Nil(t, state.calls[0])
		assert.Equal(t, model.PublishStateDraft, model.PublishStateOf(tour))
	})

	t.Run("下書きでも成功", func(t *testing.T) {
		gate := newGate(&fakePOIRepo{err: errStoreDown}, &fakeStateRepo{})
		assert.NoError(t, gate.Unpublish(ctx, &model.Tour{ID: "tour-1"}))
	})

	t.Run("保存失敗は PersistenceFailure", func(t *testing.T) {
		gate := newGate(twoPOICatalog(), &fakeStateRepo{err: errStoreDown})
		published := fixedNow
		tour := &model.Tour{ID: "tour-1", PublishedAt: &published}

		assert.ErrorIs(t, gate.Unpublish(ctx, tour), model.ErrPersistenceFailure)
		assert.Nil(t, tour.PublishedAt)
	})
}
