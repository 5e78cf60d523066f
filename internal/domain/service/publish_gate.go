package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"TourRoute-App/internal/domain/helper"
	"TourRoute-App/internal/domain/model"
	"TourRoute-App/internal/domain/repository"
)

// PublishGate ツアーの公開可否を判定し、下書き⇔公開の遷移を行う
type PublishGate struct {
	poiRepo              repository.POIStatusRepository
	stateRepo            repository.PublishStateRepository
	minDescriptionLength int
	now                  func() time.Time
}

// NewPublishGate は新しいPublishGateを作成
func NewPublishGate(poiRepo repository.POIStatusRepository, stateRepo repository.PublishStateRepository, minDescriptionLength int) *PublishGate {
	if minDescriptionLength < 0 {
		minDescriptionLength = model.DefaultMinDescriptionLength
	}
	return &PublishGate{
		poiRepo:              poiRepo,
		stateRepo:            stateRepo,
		minDescriptionLength: minDescriptionLength,
		now:                  time.Now,
	}
}

// WithClock テスト用に時計を差し替える
func (g *PublishGate) WithClock(now func() time.Time) *PublishGate {
	g.now = now
	return g
}

// MinDescriptionLength 説明文の最小文字数
func (g *PublishGate) MinDescriptionLength() int {
	return g.minDescriptionLength
}

// CheckPublishability 全ストップの参照POIを現在の状態で検証する
// ストップのPOIスナップショットは取得したステータスで更新される
func (g *PublishGate) CheckPublishability(ctx context.Context, tour *model.Tour) (*model.PublishReport, error) {
	if len(tour.Stops) == 0 {
		return &model.PublishReport{
			CanPublish: false,
			Issues:     []string{model.IssueTourHasNoStops},
		}, nil
	}

	model.SortStops(tour.Stops)
	issues := []string{}

	for i := range tour.Stops {
		stop := &tour.Stops[i]

		status, err := g.poiRepo.GetPOIStatus(ctx, stop.POIID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				// カタログにないPOIの座標は使えないため、上書き座標だけで判定する
				stop.POILat, stop.POILon = nil, nil
				issues = append(issues, model.IssuePOINotInCatalog(stop.POIID))
				if !stop.HasOverride() {
					issues = append(issues, model.IssuePOIHasNoCoordinates(stop.DisplayTitle()))
				}
				continue
			}
			return nil, fmt.Errorf("POI %s のステータス取得失敗: %w", stop.POIID, err)
		}
		stop.ApplyPOIStatus(status)

		title := stop.DisplayTitle()
		if !status.IsPublished() {
			issues = append(issues, model.IssuePOINotPublished(title))
		}
		if _, ok := helper.EffectivePosition(*stop); !ok {
			issues = append(issues, model.IssuePOIHasNoCoordinates(title))
		}
		if status.DescriptionLength < g.minDescriptionLength {
			issues = append(issues, model.IssuePOIShortDescription(title))
		}
	}

	return &model.PublishReport{
		CanPublish: len(issues) == 0,
		Issues:     issues,
	}, nil
}

// Publish 検証に通れば公開日時を設定して保存する
// 公開済みで問題がなければ何もしない
func (g *PublishGate) Publish(ctx context.Context, tour *model.Tour) error {
	report, err := g.CheckPublishability(ctx, tour)
	if err != nil {
		return err
	}
	if !report.CanPublish {
		return &model.PublishBlockedError{Issues: report.Issues}
	}
	if tour.IsPublished() {
		return nil
	}

	now := g.now()
	tour.PublishedAt = &now

	if err := g.stateRepo.SetTourPublishState(ctx, tour.ID, tour.PublishedAt); err != nil {
		logrus.WithError(err).WithField("tour_id", tour.ID).Warn("⚠️ 公開状態の保存に失敗（ローカルは公開のまま）")
		return model.NewPersistenceError("set publish state", err)
	}
	return nil
}

// Unpublish 前提条件なしで下書きへ戻す
func (g *PublishGate) Unpublish(ctx context.Context, tour *model.Tour) error {
	tour.PublishedAt = nil

	if err := g.stateRepo.SetTourPublishState(ctx, tour.ID, nil); err != nil {
		logrus.WithError(err).WithField("tour_id", tour.ID).Warn("⚠️ 非公開状態の保存に失敗（ローカルは下書き）")
		return model.NewPersistenceError("set publish state", err)
	}
	return nil
}
