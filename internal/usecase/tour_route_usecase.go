package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"TourRoute-App/internal/domain/helper"
	"TourRoute-App/internal/domain/model"
	"TourRoute-App/internal/domain/repository"
	"TourRoute-App/internal/domain/service"
	"TourRoute-App/internal/metrics"
)

// TourRouteUseCase 管理画面からのツアー編集コマンドを受け付けるオーケストレーター
// 変更はまずメモリ上に適用し、その後永続化する。永続化に失敗しても巻き戻さず
// model.PersistenceError を返す
type TourRouteUseCase interface {
	// GetTour は編集中のツアーを取得する
	GetTour(ctx context.Context, tourID string) (*model.Tour, error)
	// Refresh はローカル状態を破棄して保存先から読み直す
	Refresh(ctx context.Context, tourID string) (*model.Tour, error)

	// AddStop はPOIを末尾のストップとして追加する
	// 永続化に失敗した場合もメモリ上のストップを返す
	AddStop(ctx context.Context, tourID, poiID string) (*model.Stop, error)
	RemoveStop(ctx context.Context, tourID, stopID string) error
	MoveStop(ctx context.Context, tourID, stopID string, toIndex int) error

	SetOverride(ctx context.Context, stopID string, lat, lon float64) error
	ClearOverride(ctx context.Context, stopID string) error
	UpdateTransition(ctx context.Context, stopID string, update model.TransitionUpdate) error

	GetRouteStats(ctx context.Context, tourID string) (*model.RouteStats, error)
	GetRouteGeoJSON(ctx context.Context, tourID string) (*geojson.FeatureCollection, error)

	CheckPublishability(ctx context.Context, tourID string) (*model.PublishReport, error)
	Publish(ctx context.Context, tourID string) error
	Unpublish(ctx context.Context, tourID string) error

	// EvictIdleSessions は maxIdle 以上操作のないツアーをメモリから外し、外した数を返す
	EvictIdleSessions(maxIdle time.Duration) int
}

// tourSession 1ツアー分の編集状態
// closed になったセッションは使わずに取り直す
type tourSession struct {
	mu          sync.Mutex
	tourID      string
	ordering    *service.RouteOrderingService
	publishedAt *time.Time
	lastUsed    time.Time
	closed      bool
}

// snapshot はゲートに渡すためのツアーを組み立てる
func (s *tourSession) snapshot() *model.Tour {
	return &model.Tour{ID: s.tourID, Stops: s.ordering.Stops(), PublishedAt: s.publishedAt}
}

// reset は保存先から読み込んだツアーで状態を置き換える
func (s *tourSession) reset(tour *model.Tour, repo repository.OrderRepository) {
	s.ordering = service.NewRouteOrderingService(s.tourID, tour.Stops, repo)
	s.publishedAt = tour.PublishedAt
}

// absorb はゲートが更新したPOIスナップショットと公開日時を取り込む
func (s *tourSession) absorb(tour *model.Tour) {
	for _, st := range tour.Stops {
		checked := st
		_ = s.ordering.Update(st.ID, func(stop *model.Stop) {
			stop.POITitle = checked.POITitle
			stop.POILat = checked.POILat
			stop.POILon = checked.POILon
			stop.POIPublishedAt = checked.POIPublishedAt
			stop.POIDescriptionLength = checked.POIDescriptionLength
		})
	}
	s.publishedAt = tour.PublishedAt
}

// tourRouteUseCaseImpl はTourRouteUseCaseの実装
// u.mu は sessions と stopIndex だけを守る。保存先やカタログの呼び出し中は保持しない
type tourRouteUseCaseImpl struct {
	tourRepo repository.TourRepository
	poiRepo  repository.POIStatusRepository
	gate     *service.PublishGate
	stats    *service.RouteStatsCalculator

	loads singleflight.Group

	mu        sync.Mutex
	sessions  map[string]*tourSession
	stopIndex map[string]string // stopID -> tourID
}

// NewTourRouteUseCase は新しいTourRouteUseCaseインスタンスを作成
func NewTourRouteUseCase(
	tourRepo repository.TourRepository,
	poiRepo repository.POIStatusRepository,
	gate *service.PublishGate,
) TourRouteUseCase {
	return &tourRouteUseCaseImpl{
		tourRepo:  tourRepo,
		poiRepo:   poiRepo,
		gate:      gate,
		stats:     service.NewRouteStatsCalculator(),
		sessions:  make(map[string]*tourSession),
		stopIndex: make(map[string]string),
	}
}

// session はツアーの編集セッションを返す（なければ保存先から読み込む）
// 同じツアーへの同時要求は1回の読み込みを共有する。loaded はこの呼び出しで読み込んだか
func (u *tourRouteUseCaseImpl) session(ctx context.Context, tourID string) (*tourSession, bool, error) {
	u.mu.Lock()
	s, ok := u.sessions[tourID]
	u.mu.Unlock()
	if ok {
		return s, false, nil
	}

	v, err, _ := u.loads.Do(tourID, func() (interface{}, error) {
		return u.load(ctx, tourID)
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*tourSession), true, nil
}

// lockSession はセッションを取得して s.mu をロックした状態で返す
func (u *tourRouteUseCaseImpl) lockSession(ctx context.Context, tourID string) (*tourSession, bool, error) {
	for {
		s, loaded, err := u.session(ctx, tourID)
		if err != nil {
			return nil, false, err
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			continue
		}
		s.lastUsed = time.Now()
		return s, loaded, nil
	}
}

// load は保存先から読み込んだセッションを登録する
func (u *tourRouteUseCaseImpl) load(ctx context.Context, tourID string) (*tourSession, error) {
	u.mu.Lock()
	existing, ok := u.sessions[tourID]
	u.mu.Unlock()
	if ok {
		return existing, nil
	}

	tour, err := u.fetchTour(ctx, tourID)
	if err != nil {
		return nil, err
	}

	s := &tourSession{tourID: tourID, lastUsed: time.Now()}
	s.reset(tour, u.tourRepo)
	stopIDs := s.ordering.StopIDs()

	u.mu.Lock()
	u.sessions[tourID] = s
	u.reindexLocked(tourID, stopIDs)
	u.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"tour_id": tourID,
		"stops":   len(stopIDs),
		"state":   model.PublishStateOf(tour),
	}).Info("📂 ツアーを読み込みました")
	return s, nil
}

// fetchTour は保存先のツアーにPOIの現在の状態を付けて返す
func (u *tourRouteUseCaseImpl) fetchTour(ctx context.Context, tourID string) (*model.Tour, error) {
	tour, err := u.tourRepo.LoadTour(ctx, tourID)
	if err != nil {
		return nil, fmt.Errorf("ツアー %s の読み込み失敗: %w", tourID, err)
	}

	for i := range tour.Stops {
		status, err := u.poiRepo.GetPOIStatus(ctx, tour.Stops[i].POIID)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"tour_id": tourID,
				"poi_id":  tour.Stops[i].POIID,
			}).Warn("⚠️ POIステータスを取得できません（座標なしとして扱います）")
			continue
		}
		tour.Stops[i].ApplyPOIStatus(status)
	}
	return tour, nil
}

// reindex はツアーのストップ索引を stopIDs で置き換える
func (u *tourRouteUseCaseImpl) reindex(tourID string, stopIDs []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.reindexLocked(tourID, stopIDs)
}

// reindexLocked は u.mu を保持した状態で呼ぶ
func (u *tourRouteUseCaseImpl) reindexLocked(tourID string, stopIDs []string) {
	for stopID, owner := range u.stopIndex {
		if owner == tourID {
			delete(u.stopIndex, stopID)
		}
	}
	for _, id := range stopIDs {
		u.stopIndex[id] = tourID
	}
	metrics.OpenTourSessions.Set(float64(len(u.sessions)))
}

// lockSessionForStop はストップが属するツアーのセッションをロックして返す
func (u *tourRouteUseCaseImpl) lockSessionForStop(ctx context.Context, stopID string) (*tourSession, error) {
	u.mu.Lock()
	tourID, ok := u.stopIndex[stopID]
	u.mu.Unlock()

	if !ok {
		id, err := u.tourRepo.FindTourIDByStop(ctx, stopID)
		if err != nil {
			return nil, fmt.Errorf("ストップ %s の所属ツアー検索失敗: %w", stopID, err)
		}
		tourID = id
	}
	s, _, err := u.lockSession(ctx, tourID)
	return s, err
}

func (u *tourRouteUseCaseImpl) indexStop(stopID, tourID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if tourID == "" {
		delete(u.stopIndex, stopID)
		return
	}
	u.stopIndex[stopID] = tourID
}

// EvictIdleSessions は操作のないツアーをメモリから外す
// 使用中（ロック中）のセッションは対象外
func (u *tourRouteUseCaseImpl) EvictIdleSessions(maxIdle time.Duration) int {
	u.mu.Lock()
	defer u.mu.Unlock()

	evicted := 0
	for tourID, s := range u.sessions {
		if !s.mu.TryLock() {
			continue
		}
		if time.Since(s.lastUsed) >= maxIdle {
			s.closed = true
			delete(u.sessions, tourID)
			for stopID, owner := range u.stopIndex {
				if owner == tourID {
					delete(u.stopIndex, stopID)
				}
			}
			evicted++
		}
		s.mu.Unlock()
	}

	if evicted > 0 {
		metrics.OpenTourSessions.Set(float64(len(u.sessions)))
		logrus.WithFields(logrus.Fields{
			"evicted":   evicted,
			"remaining": len(u.sessions),
		}).Info("🧹 操作のないツアーをメモリから外しました")
	}
	return evicted
}

// GetTour は編集中のツアーを取得する
func (u *tourRouteUseCaseImpl) GetTour(ctx context.Context, tourID string) (*model.Tour, error) {
	s, _, err := u.lockSession(ctx, tourID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

// Refresh はローカル状態を破棄して読み直す
// 同じセッションをロックしたまま置き換えるため、先行するコマンドとは順番に適用される
func (u *tourRouteUseCaseImpl) Refresh(ctx context.Context, tourID string) (tour *model.Tour, err error) {
	defer func() { metrics.RecordCommand("refresh", err) }()

	s, loaded, err := u.lockSession(ctx, tourID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	if !loaded {
		fresh, err := u.fetchTour(ctx, tourID)
		if err != nil {
			return nil, err
		}
		s.reset(fresh, u.tourRepo)
		u.reindex(tourID, s.ordering.StopIDs())
		logrus.WithFields(logrus.Fields{"tour_id": tourID, "stops": s.ordering.Len()}).Info("🔄 ツアーを読み直しました")
	}
	return s.snapshot(), nil
}

// AddStop はPOIを末尾のストップとして追加する
func (u *tourRouteUseCaseImpl) AddStop(ctx context.Context, tourID, poiID string) (stop *model.Stop, err error) {
	defer func() { metrics.RecordCommand("add_stop", err) }()

	status, err := u.poiRepo.GetPOIStatus(ctx, poiID)
	if err != nil {
		return nil, fmt.Errorf("POI %s の取得失敗: %w", poiID, err)
	}

	s, _, err := u.lockSession(ctx, tourID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	newStop := model.Stop{
		ID:    uuid.New().String(),
		POIID: poiID,
	}
	newStop.ApplyPOIStatus(status)

	orderErr := s.ordering.Append(ctx, newStop)
	var perr *model.PersistenceError
	if orderErr != nil && !errors.As(orderErr, &perr) {
		return nil, orderErr
	}
	u.indexStop(newStop.ID, tourID)

	added, _ := s.ordering.Find(newStop.ID)
	result := *added

	if err := u.tourRepo.PersistStop(ctx, tourID, result.ID, result.Fields()); err != nil {
		return &result, model.NewPersistenceError("persist stop", err)
	}
	if orderErr != nil {
		return &result, orderErr
	}

	logrus.WithFields(logrus.Fields{
		"tour_id":     tourID,
		"stop_id":     result.ID,
		"poi_id":      poiID,
		"order_index": result.OrderIndex,
	}).Info("📍 ストップを追加しました")
	return &result, nil
}

// RemoveStop はストップを削除する
func (u *tourRouteUseCaseImpl) RemoveStop(ctx context.Context, tourID, stopID string) (err error) {
	defer func() { metrics.RecordCommand("remove_stop", err) }()

	s, _, err := u.lockSession(ctx, tourID)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	err = s.ordering.Remove(ctx, stopID)
	var perr *model.PersistenceError
	if err == nil || errors.As(err, &perr) {
		u.indexStop(stopID, "")
	}
	if err == nil {
		logrus.WithFields(logrus.Fields{"tour_id": tourID, "stop_id": stopID}).Info("🗑️ ストップを削除しました")
	}
	return err
}

// MoveStop はストップを toIndex へ移動する
func (u *tourRouteUseCaseImpl) MoveStop(ctx context.Context, tourID, stopID string, toIndex int) (err error) {
	defer func() { metrics.RecordCommand("move_stop", err) }()

	s, _, err := u.lockSession(ctx, tourID)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if err := s.ordering.Move(ctx, stopID, toIndex); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"tour_id": tourID, "stop_id": stopID, "to_index": toIndex}).Info("↕️ ストップを移動しました")
	return nil
}

// SetOverride はツアー固有の座標上書きを設定する
func (u *tourRouteUseCaseImpl) SetOverride(ctx context.Context, stopID string, lat, lon float64) (err error) {
	defer func() { metrics.RecordCommand("set_override", err) }()

	if !helper.IsValidCoordinate(lat, lon) {
		return fmt.Errorf("lat=%f lon=%f: %w", lat, lon, model.ErrInvalidCoordinates)
	}
	return u.editStop(ctx, stopID, func(stop *model.Stop) {
		stop.OverrideLat = &lat
		stop.OverrideLon = &lon
	})
}

// ClearOverride は座標上書きを解除してPOIの座標に戻す
func (u *tourRouteUseCaseImpl) ClearOverride(ctx context.Context, stopID string) (err error) {
	defer func() { metrics.RecordCommand("clear_override", err) }()

	return u.editStop(ctx, stopID, func(stop *model.Stop) {
		stop.OverrideLat = nil
		stop.OverrideLon = nil
	})
}

// UpdateTransition は移動区間のテキスト・音声・滞在時間を更新する
func (u *tourRouteUseCaseImpl) UpdateTransition(ctx context.Context, stopID string, update model.TransitionUpdate) (err error) {
	defer func() { metrics.RecordCommand("update_transition", err) }()

	if update.DwellSeconds != nil && *update.DwellSeconds < 0 {
		return fmt.Errorf("dwell_seconds=%d: %w", *update.DwellSeconds, model.ErrInvalidDwellTime)
	}
	return u.editStop(ctx, stopID, func(stop *model.Stop) {
		if update.Text != nil {
			stop.TransitionText = optionalString(*update.Text)
		}
		if update.AudioURL != nil {
			stop.TransitionAudioURL = optionalString(*update.AudioURL)
		}
		if update.DwellSeconds != nil {
			stop.DwellSeconds = *update.DwellSeconds
		}
	})
}

// editStop はストップを書き換えてから persistStop を呼ぶ
func (u *tourRouteUseCaseImpl) editStop(ctx context.Context, stopID string, fn func(stop *model.Stop)) error {
	s, err := u.lockSessionForStop(ctx, stopID)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if err := s.ordering.Update(stopID, fn); err != nil {
		return err
	}
	stop, _ := s.ordering.Find(stopID)

	if err := u.tourRepo.PersistStop(ctx, s.tourID, stopID, stop.Fields()); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"tour_id": s.tourID,
			"stop_id": stopID,
		}).Warn("⚠️ ストップの保存に失敗（ローカル状態は保持）")
		return model.NewPersistenceError("persist stop", err)
	}
	return nil
}

// GetRouteStats はルート統計をその場で計算する
func (u *tourRouteUseCaseImpl) GetRouteStats(ctx context.Context, tourID string) (*model.RouteStats, error) {
	s, _, err := u.lockSession(ctx, tourID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	stats := u.stats.Compute(s.ordering.Stops())
	return &stats, nil
}

// GetRouteGeoJSON は地図表示用のGeoJSONを返す
func (u *tourRouteUseCaseImpl) GetRouteGeoJSON(ctx context.Context, tourID string) (*geojson.FeatureCollection, error) {
	s, _, err := u.lockSession(ctx, tourID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	return service.RouteFeatureCollection(s.ordering.Stops()), nil
}

// CheckPublishability は公開可否を判定する
func (u *tourRouteUseCaseImpl) CheckPublishability(ctx context.Context, tourID string) (*model.PublishReport, error) {
	s, _, err := u.lockSession(ctx, tourID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	tour := s.snapshot()
	report, err := u.gate.CheckPublishability(ctx, tour)
	metrics.RecordPublishCheck(report, err)
	if err != nil {
		return nil, err
	}
	s.absorb(tour)
	return report, nil
}

// Publish は公開ゲートを通過したツアーを公開する
func (u *tourRouteUseCaseImpl) Publish(ctx context.Context, tourID string) (err error) {
	defer func() { metrics.RecordCommand("publish", err) }()

	s, _, err := u.lockSession(ctx, tourID)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	tour := s.snapshot()
	err = u.gate.Publish(ctx, tour)
	if err != nil && !errors.Is(err, model.ErrPublishBlocked) && !errors.Is(err, model.ErrPersistenceFailure) {
		return err
	}
	s.absorb(tour)

	if err != nil {
		logrus.WithError(err).WithField("tour_id", tourID).Warn("🚫 ツアーを公開できません")
		return err
	}
	logrus.WithFields(logrus.Fields{"tour_id": tourID, "published_at": tour.PublishedAt}).Info("🚀 ツアーを公開しました")
	return nil
}

// Unpublish はツアーを下書きに戻す
func (u *tourRouteUseCaseImpl) Unpublish(ctx context.Context, tourID string) (err error) {
	defer func() { metrics.RecordCommand("unpublish", err) }()

	s, _, err := u.lockSession(ctx, tourID)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	tour := s.snapshot()
	err = u.gate.Unpublish(ctx, tour)
	s.absorb(tour)
	if err != nil {
		return err
	}
	logrus.WithField("tour_id", tourID).Info("📝 ツアーを下書きに戻しました")
	return nil
}

// optionalString は空文字を nil として扱う
func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
