package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"TourRoute-App/internal/domain/model"
	"TourRoute-App/internal/domain/repository"
	"TourRoute-App/internal/infrastructure/database"
	"TourRoute-App/internal/metrics"
)

const supabasePOIColumns = "id,title,description,location,published_at"

// poiFetcher POI ID で pois テーブルの行(JSON配列)を取得する
type poiFetcher func(poiID string) ([]byte, error)

// supabasePOIRow PostgRESTが返すPOI行（location は GeoJSON）
type supabasePOIRow struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Location    json.RawMessage `json:"location"`
	PublishedAt *time.Time      `json:"published_at"`
}

// SupabasePOIStatusRepository SupabaseのPOIカタログをサーキットブレーカー越しに参照する
type SupabasePOIStatusRepository struct {
	fetch   poiFetcher
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[[]byte]
}

// NewSupabasePOIStatusRepository 新しいSupabasePOIStatusRepositoryを作成
func NewSupabasePOIStatusRepository(client *database.SupabaseClient, timeout time.Duration) repository.POIStatusRepository {
	fetch := func(poiID string) ([]byte, error) {
		data, _, err := client.GetClient().From("pois").Select(supabasePOIColumns, "exact", false).Eq("id", poiID).Execute()
		return data, err
	}
	return newSupabasePOIStatusRepository(fetch, timeout)
}

func newSupabasePOIStatusRepository(fetch poiFetcher, timeout time.Duration) *SupabasePOIStatusRepository {
	const name = "supabase-poi-catalog"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logrus.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("⚡ サーキットブレーカーの状態が変化しました")
		},
	})

	return &SupabasePOIStatusRepository{
		fetch:   fetch,
		timeout: timeout,
		cb:      cb,
	}
}

// GetPOIStatus はPOIの現在の状態を取得する
func (r *SupabasePOIStatusRepository) GetPOIStatus(ctx context.Context, poiID string) (*model.POIStatus, error) {
	data, err := r.cb.Execute(func() ([]byte, error) {
		return r.fetchWithTimeout(ctx, poiID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("POIカタログが一時的に利用できません: %w", err)
		}
		return nil, fmt.Errorf("POIデータの取得失敗: %w", err)
	}

	var rows []supabasePOIRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("POIデータのJSONアンマーシャル失敗: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("POI ID %s: %w", poiID, model.ErrNotFound)
	}
	return rows[0].toStatus()
}

// fetchWithTimeout はSupabaseクライアントがcontextを受け取らないため別goroutineで待つ
func (r *SupabasePOIStatusRepository) fetchWithTimeout(ctx context.Context, poiID string) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ch := make(chan result, 1)
	go func() {
		data, err := r.fetch(poiID)
		ch <- result{data: data, err: err}
	}()

	select {
	case res := <-ch:
		return res.data, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("POIカタログの応答待ちを中断: %w", ctx.Err())
	}
}

func (row *supabasePOIRow) toStatus() (*model.POIStatus, error) {
	status := &model.POIStatus{
		ID:                row.ID,
		Title:             row.Title,
		PublishedAt:       row.PublishedAt,
		DescriptionLength: utf8.RuneCountInString(row.Description),
	}

	if len(row.Location) == 0 || string(row.Location) == "null" {
		return status, nil
	}
	geometry, err := geojson.UnmarshalGeometry(row.Location)
	if err != nil {
		return nil, fmt.Errorf("POI %s の location GeoJSONパースエラー: %w", row.ID, err)
	}
	point, ok := geometry.Geometry().(orb.Point)
	if !ok {
		return nil, fmt.Errorf("POI %s の location がPointではありません: %s", row.ID, geometry.Type)
	}
	lat, lon := point.Lat(), point.Lon()
	status.Lat = &lat
	status.Lon = &lon
	return status, nil
}
