package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/paulmach/orb/encoding/wkt"

	"TourRoute-App/internal/domain/model"
	"TourRoute-App/internal/domain/repository"
	"TourRoute-App/internal/infrastructure/database"
)

// SQLPOIStatusRepository pois テーブルからPOIの公開状態を読む
type SQLPOIStatusRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLPOIStatusRepository 新しいSQLPOIStatusRepositoryを作成
func NewSQLPOIStatusRepository(db *sql.DB, dialect database.Dialect) repository.POIStatusRepository {
	return &SQLPOIStatusRepository{
		db:      db,
		dialect: dialect,
	}
}

// GetPOIStatus はPOIの現在の状態を取得する
func (r *SQLPOIStatusRepository) GetPOIStatus(ctx context.Context, poiID string) (*model.POIStatus, error) {
	query := fmt.Sprintf(
		"SELECT id, title, description, %s, %s FROM pois WHERE id = %s",
		r.dialect.LocationColumn("location"),
		r.dialect.TimeColumn("published_at"),
		r.dialect.Placeholder(1),
	)

	var (
		status      model.POIStatus
		description string
		location    sql.NullString
		publishedAt sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, poiID).Scan(&status.ID, &status.Title, &description, &location, &publishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("POI ID %s: %w", poiID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("POIデータの取得失敗: %w", err)
	}

	if location.Valid && location.String != "" {
		point, err := wkt.UnmarshalPoint(location.String)
		if err != nil {
			return nil, fmt.Errorf("POI %s の位置情報(WKT)パースエラー: %w", poiID, err)
		}
		lat, lon := point.Lat(), point.Lon()
		status.Lat = &lat
		status.Lon = &lon
	}
	status.PublishedAt = timePtr(publishedAt)
	status.DescriptionLength = utf8.RuneCountInString(description)

	return &status, nil
}
