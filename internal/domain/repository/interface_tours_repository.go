package repository

import (
	"context"
	"time"

	"TourRoute-App/internal/domain/model"
)

// OrderRepository ストップ順序の永続化
type OrderRepository interface {
	// PersistOrder はツアーのストップID列をその順序で保存する（列にないストップは削除）
	PersistOrder(ctx context.Context, tourID string, orderedStopIDs []string) error
}

// PublishStateRepository ツアー公開状態の永続化
type PublishStateRepository interface {
	// SetTourPublishState は公開日時を保存する（nilは下書き）
	SetTourPublishState(ctx context.Context, tourID string, publishedAt *time.Time) error
}

// TourRepository ツアー編集エンジンが必要とする永続化の契約
type TourRepository interface {
	OrderRepository
	PublishStateRepository

	// PersistStop はストップのフィールドを保存する（upsert）
	PersistStop(ctx context.Context, tourID, stopID string, fields model.StopFields) error
	// LoadTour は保存済みのツアーを読み込む（POIスナップショットは含まない）
	LoadTour(ctx context.Context, tourID string) (*model.Tour, error)
	// FindTourIDByStop はストップが属するツアーIDを返す
	FindTourIDByStop(ctx context.Context, stopID string) (string, error)
}
