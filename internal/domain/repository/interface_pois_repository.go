package repository

import (
	"context"

	"TourRoute-App/internal/domain/model"
)

// POIStatusRepository POIカタログから公開判定に必要なステータスを取得する
// 存在しないPOIは model.ErrNotFound を返す
type POIStatusRepository interface {
	GetPOIStatus(ctx context.Context, poiID string) (*model.POIStatus, error)
}
