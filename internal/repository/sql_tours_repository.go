package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"TourRoute-App/internal/domain/model"
	"TourRoute-App/internal/domain/repository"
	"TourRoute-App/internal/infrastructure/database"
)

// SQLToursRepository PostgreSQL / SQLite 共通のツアー保存先
type SQLToursRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLToursRepository 新しいSQLToursRepositoryを作成
func NewSQLToursRepository(db *sql.DB, dialect database.Dialect) repository.TourRepository {
	return &SQLToursRepository{
		db:      db,
		dialect: dialect,
	}
}

func (r *SQLToursRepository) p(n int) string {
	return r.dialect.Placeholder(n)
}

// PersistOrder は stopIDs の並びを order_index に反映し、含まれないストップを削除する
func (r *SQLToursRepository) PersistOrder(ctx context.Context, tourID string, stopIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始失敗: %w", err)
	}
	defer tx.Rollback()

	update := fmt.Sprintf(
		"UPDATE tour_stops SET order_index = %s WHERE id = %s AND tour_id = %s",
		r.p(1), r.p(2), r.p(3),
	)
	for i, id := range stopIDs {
		if _, err := tx.ExecContext(ctx, update, i, id, tourID); err != nil {
			return fmt.Errorf("ストップ %s の順序更新失敗: %w", id, err)
		}
	}

	args := []any{tourID}
	del := fmt.Sprintf("DELETE FROM tour_stops WHERE tour_id = %s", r.p(1))
	if len(stopIDs) > 0 {
		del += fmt.Sprintf(" AND id NOT IN (%s)", r.dialect.Placeholders(2, len(stopIDs)))
		for _, id := range stopIDs {
			args = append(args, id)
		}
	}
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return fmt.Errorf("ツアー %s の削除済みストップ除去失敗: %w", tourID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミット失敗: %w", err)
	}
	return nil
}

// PersistStop はストップの永続化フィールドを upsert する
func (r *SQLToursRepository) PersistStop(ctx context.Context, tourID, stopID string, f model.StopFields) error {
	query := fmt.Sprintf(`
		INSERT INTO tour_stops (
			id, tour_id, poi_id, order_index, override_lat, override_lon,
			transition_text, transition_audio_url, dwell_seconds
		) VALUES (%s)
		ON CONFLICT (id) DO UPDATE SET
			poi_id = excluded.poi_id,
			order_index = excluded.order_index,
			override_lat = excluded.override_lat,
			override_lon = excluded.override_lon,
			transition_text = excluded.transition_text,
			transition_audio_url = excluded.transition_audio_url,
			dwell_seconds = excluded.dwell_seconds`,
		r.dialect.Placeholders(1, 9),
	)

	_, err := r.db.ExecContext(ctx, query,
		stopID, tourID, f.POIID, f.OrderIndex,
		nullFloat(f.OverrideLat), nullFloat(f.OverrideLon),
		nullString(f.TransitionText), nullString(f.TransitionAudioURL),
		f.DwellSeconds,
	)
	if err != nil {
		return fmt.Errorf("ストップ %s の保存失敗: %w", stopID, err)
	}
	return nil
}

// SetTourPublishState は公開日時を保存する（nilで下書き）
func (r *SQLToursRepository) SetTourPublishState(ctx context.Context, tourID string, publishedAt *time.Time) error {
	query := fmt.Sprintf("UPDATE tours SET published_at = %s WHERE id = %s", r.dialect.TimeParam(1), r.p(2))

	res, err := r.db.ExecContext(ctx, query, nullUnixMilli(publishedAt), tourID)
	if err != nil {
		return fmt.Errorf("ツアー %s の公開状態保存失敗: %w", tourID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得失敗: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("ツアー %s: %w", tourID, model.ErrNotFound)
	}
	return nil
}

// LoadTour はツアーとストップを order_index 順で読み込む
func (r *SQLToursRepository) LoadTour(ctx context.Context, tourID string) (*model.Tour, error) {
	var publishedAt sql.NullInt64
	tourQuery := fmt.Sprintf("SELECT %s FROM tours WHERE id = %s", r.dialect.TimeColumn("published_at"), r.p(1))
	if err := r.db.QueryRowContext(ctx, tourQuery, tourID).Scan(&publishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ツアー %s: %w", tourID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("ツアー %s の取得失敗: %w", tourID, err)
	}

	stopQuery := fmt.Sprintf(`
		SELECT id, poi_id, order_index, override_lat, override_lon,
			transition_text, transition_audio_url, dwell_seconds
		FROM tour_stops
		WHERE tour_id = %s
		ORDER BY order_index, id`, r.p(1))

	rows, err := r.db.QueryContext(ctx, stopQuery, tourID)
	if err != nil {
		return nil, fmt.Errorf("ツアー %s のストップ取得失敗: %w", tourID, err)
	}
	defer rows.Close()

	tour := &model.Tour{ID: tourID, Stops: []model.Stop{}, PublishedAt: timePtr(publishedAt)}
	for rows.Next() {
		var (
			st                       model.Stop
			overrideLat, overrideLon sql.NullFloat64
			text, audio              sql.NullString
		)
		if err := rows.Scan(&st.ID, &st.POIID, &st.OrderIndex, &overrideLat, &overrideLon,
			&text, &audio, &st.DwellSeconds); err != nil {
			return nil, fmt.Errorf("ストップのスキャンエラー: %w", err)
		}
		st.OverrideLat = floatPtr(overrideLat)
		st.OverrideLon = floatPtr(overrideLon)
		st.TransitionText = stringPtr(text)
		st.TransitionAudioURL = stringPtr(audio)
		tour.Stops = append(tour.Stops, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ストップの読み込みエラー: %w", err)
	}
	return tour, nil
}

// FindTourIDByStop はストップが属するツアーIDを返す
func (r *SQLToursRepository) FindTourIDByStop(ctx context.Context, stopID string) (string, error) {
	var tourID string
	query := fmt.Sprintf("SELECT tour_id FROM tour_stops WHERE id = %s", r.p(1))
	if err := r.db.QueryRowContext(ctx, query, stopID).Scan(&tourID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("ストップ %s: %w", stopID, model.ErrNotFound)
		}
		return "", fmt.Errorf("ストップ %s の検索失敗: %w", stopID, err)
	}
	return tourID, nil
}
