package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"TourRoute-App/internal/domain/model"
	"TourRoute-App/internal/domain/repository"
)

// RouteOrderingService 1ツアー分のストップ順序を管理する
// 変更後は order_index が必ず 0..n-1 の連番になってから永続化を呼ぶ
type RouteOrderingService struct {
	tourID string
	stops  []model.Stop
	repo   repository.OrderRepository
}

// NewRouteOrderingService 既存のストップから順序サービスを作成する
func NewRouteOrderingService(tourID string, stops []model.Stop, repo repository.OrderRepository) *RouteOrderingService {
	ordered := make([]model.Stop, len(stops))
	copy(ordered, stops)
	NormalizeOrder(ordered)
	return &RouteOrderingService{
		tourID: tourID,
		stops:  ordered,
		repo:   repo,
	}
}

// Len ストップ数
func (s *RouteOrderingService) Len() int {
	return len(s.stops)
}

// Stops 現在の順序のコピーを返す
func (s *RouteOrderingService) Stops() []model.Stop {
	out := make([]model.Stop, len(s.stops))
	copy(out, s.stops)
	return out
}

// StopIDs 現在の順序のストップID列
func (s *RouteOrderingService) StopIDs() []string {
	ids := make([]string, len(s.stops))
	for i, st := range s.stops {
		ids[i] = st.ID
	}
	return ids
}

// Find ストップを取得する
func (s *RouteOrderingService) Find(stopID string) (*model.Stop, bool) {
	i := s.indexOf(stopID)
	if i < 0 {
		return nil, false
	}
	return &s.stops[i], true
}

// Update ストップのフィールドをその場で書き換える（順序は変えない）
func (s *RouteOrderingService) Update(stopID string, fn func(stop *model.Stop)) error {
	i := s.indexOf(stopID)
	if i < 0 {
		return fmt.Errorf("ストップ %s: %w", stopID, model.ErrNotFound)
	}
	index := s.stops[i].OrderIndex
	fn(&s.stops[i])
	s.stops[i].OrderIndex = index
	return nil
}

// Append 末尾にストップを追加する
func (s *RouteOrderingService) Append(ctx context.Context, stop model.Stop) error {
	return s.Insert(ctx, stop, len(s.stops))
}

// Insert atIndex にストップを挿入し、以降のストップを1つずつ後ろへずらす
func (s *RouteOrderingService) Insert(ctx context.Context, stop model.Stop, atIndex int) error {
	if atIndex < 0 || atIndex > len(s.stops) {
		return fmt.Errorf("挿入位置 %d (ストップ数 %d): %w", atIndex, len(s.stops), model.ErrInvalidIndex)
	}

	s.stops = append(s.stops, model.Stop{})
	copy(s.stops[atIndex+1:], s.stops[atIndex:])
	s.stops[atIndex] = stop
	s.renumber()

	return s.persist(ctx, "insert")
}

// Remove ストップを削除し、後続を1つずつ前へ詰める
func (s *RouteOrderingService) Remove(ctx context.Context, stopID string) error {
	i := s.indexOf(stopID)
	if i < 0 {
		return fmt.Errorf("ストップ %s: %w", stopID, model.ErrNotFound)
	}

	s.stops = append(s.stops[:i], s.stops[i+1:]...)
	s.renumber()

	return s.persist(ctx, "remove")
}

// Move ストップを toIndex へ移動する（間のストップは1つずつずれる）
func (s *RouteOrderingService) Move(ctx context.Context, stopID string, toIndex int) error {
	from := s.indexOf(stopID)
	if from < 0 {
		return fmt.Errorf("ストップ %s: %w", stopID, model.ErrNotFound)
	}
	if toIndex < 0 || toIndex > len(s.stops)-1 {
		return fmt.Errorf("移動先 %d (ストップ数 %d): %w", toIndex, len(s.stops), model.ErrInvalidIndex)
	}

	moved := s.stops[from]
	if from < toIndex {
		copy(s.stops[from:toIndex], s.stops[from+1:toIndex+1])
	} else if from > toIndex {
		copy(s.stops[toIndex+1:from+1], s.stops[toIndex:from])
	}
	s.stops[toIndex] = moved
	s.renumber()

	return s.persist(ctx, "move")
}

func (s *RouteOrderingService) indexOf(stopID string) int {
	for i := range s.stops {
		if s.stops[i].ID == stopID {
			return i
		}
	}
	return -1
}

func (s *RouteOrderingService) renumber() {
	for i := range s.stops {
		s.stops[i].OrderIndex = i
	}
}

// persist は現在のID列を保存する。失敗してもメモリ上の変更は戻さない
func (s *RouteOrderingService) persist(ctx context.Context, op string) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.PersistOrder(ctx, s.tourID, s.StopIDs()); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"tour_id": s.tourID,
			"op":      op,
		}).Warn("⚠️ ストップ順序の保存に失敗（ローカル状態は保持）")
		return model.NewPersistenceError("persist order", err)
	}
	return nil
}

// NormalizeOrder order_index で並べ替えて 0..n-1 に振り直す
// 保存済みデータに欠番や重複があっても読み込み時に連番へ戻す
func NormalizeOrder(stops []model.Stop) {
	model.SortStops(stops)
	for i := range stops {
		stops[i].OrderIndex = i
	}
}

// HasContiguousOrder order_index が 0..n-1 をちょうど1回ずつ含むか
func HasContiguousOrder(stops []model.Stop) bool {
	seen := make([]bool, len(stops))
	for _, st := range stops {
		if st.OrderIndex < 0 || st.OrderIndex >= len(stops) || seen[st.OrderIndex] {
			return false
		}
		seen[st.OrderIndex] = true
	}
	return true
}
