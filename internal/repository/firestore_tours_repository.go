package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"TourRoute-App/internal/domain/model"
	"TourRoute-App/internal/domain/repository"
)

const (
	toursCollection = "tours"
	stopsCollection = "stops"
)

// firestoreStop tours/{tourId}/stops/{stopId} のドキュメント
type firestoreStop struct {
	StopID             string   `firestore:"stop_id"`
	TourID             string   `firestore:"tour_id"`
	POIID              string   `firestore:"poi_id"`
	OrderIndex         int      `firestore:"order_index"`
	OverrideLat        *float64 `firestore:"override_lat"`
	OverrideLon        *float64 `firestore:"override_lon"`
	TransitionText     *string  `firestore:"transition_text"`
	TransitionAudioURL *string  `firestore:"transition_audio_url"`
	DwellSeconds       int      `firestore:"dwell_seconds"`
}

// firestoreTour tours/{tourId} のドキュメント
type firestoreTour struct {
	Title       string     `firestore:"title"`
	PublishedAt *time.Time `firestore:"published_at"`
}

func (d *firestoreStop) toStop() model.Stop {
	return model.Stop{
		ID:                 d.StopID,
		POIID:              d.POIID,
		OrderIndex:         d.OrderIndex,
		OverrideLat:        d.OverrideLat,
		OverrideLon:        d.OverrideLon,
		TransitionText:     d.TransitionText,
		TransitionAudioURL: d.TransitionAudioURL,
		DwellSeconds:       d.DwellSeconds,
	}
}

// FirestoreToursRepository Firestoreを使用したツアー保存先
type FirestoreToursRepository struct {
	client *firestore.Client
}

// NewFirestoreToursRepository 新しいFirestoreToursRepositoryインスタンスを作成
func NewFirestoreToursRepository(client *firestore.Client) repository.TourRepository {
	return &FirestoreToursRepository{
		client: client,
	}
}

func (r *FirestoreToursRepository) tourDoc(tourID string) *firestore.DocumentRef {
	return r.client.Collection(toursCollection).Doc(tourID)
}

// PersistOrder はトランザクション内で order_index を振り直し、含まれないストップを削除する
func (r *FirestoreToursRepository) PersistOrder(ctx context.Context, tourID string, stopIDs []string) error {
	position := make(map[string]int, len(stopIDs))
	for i, id := range stopIDs {
		position[id] = i
	}

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docs, err := tx.Documents(r.tourDoc(tourID).Collection(stopsCollection)).GetAll()
		if err != nil {
			return err
		}
		for _, doc := range docs {
			idx, ok := position[doc.Ref.ID]
			if !ok {
				if err := tx.Delete(doc.Ref); err != nil {
					return err
				}
				continue
			}
			if err := tx.Update(doc.Ref, []firestore.Update{{Path: "order_index", Value: idx}}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ツアー %s の順序保存失敗: %w", tourID, err)
	}
	return nil
}

// PersistStop はストップのドキュメントを上書き保存する
func (r *FirestoreToursRepository) PersistStop(ctx context.Context, tourID, stopID string, f model.StopFields) error {
	doc := firestoreStop{
		StopID:             stopID,
		TourID:             tourID,
		POIID:              f.POIID,
		OrderIndex:         f.OrderIndex,
		OverrideLat:        f.OverrideLat,
		OverrideLon:        f.OverrideLon,
		TransitionText:     f.TransitionText,
		TransitionAudioURL: f.TransitionAudioURL,
		DwellSeconds:       f.DwellSeconds,
	}
	if _, err := r.tourDoc(tourID).Collection(stopsCollection).Doc(stopID).Set(ctx, doc); err != nil {
		return fmt.Errorf("ストップ %s の保存失敗: %w", stopID, err)
	}
	return nil
}

// SetTourPublishState は公開日時を保存する（nilで下書き）
func (r *FirestoreToursRepository) SetTourPublishState(ctx context.Context, tourID string, publishedAt *time.Time) error {
	var value interface{}
	if publishedAt != nil {
		value = *publishedAt
	}
	_, err := r.tourDoc(tourID).Update(ctx, []firestore.Update{{Path: "published_at", Value: value}})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("ツアー %s: %w", tourID, model.ErrNotFound)
		}
		return fmt.Errorf("ツアー %s の公開状態保存失敗: %w", tourID, err)
	}
	return nil
}

// LoadTour はツアーとストップを order_index 順で読み込む
func (r *FirestoreToursRepository) LoadTour(ctx context.Context, tourID string) (*model.Tour, error) {
	snap, err := r.tourDoc(tourID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("ツアー %s: %w", tourID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("ツアー %s の取得失敗: %w", tourID, err)
	}
	var tourDoc firestoreTour
	if err := snap.DataTo(&tourDoc); err != nil {
		return nil, fmt.Errorf("ツアーデータの変換に失敗しました: %w", err)
	}

	docs, err := r.tourDoc(tourID).Collection(stopsCollection).
		OrderBy("order_index", firestore.Asc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("ツアー %s のストップ取得失敗: %w", tourID, err)
	}

	tour := &model.Tour{ID: tourID, Stops: make([]model.Stop, 0, len(docs)), PublishedAt: tourDoc.PublishedAt}
	for _, doc := range docs {
		var stop firestoreStop
		if err := doc.DataTo(&stop); err != nil {
			return nil, fmt.Errorf("ストップ %s の変換に失敗しました: %w", doc.Ref.ID, err)
		}
		if stop.StopID == "" {
			stop.StopID = doc.Ref.ID
		}
		tour.Stops = append(tour.Stops, stop.toStop())
	}
	model.SortStops(tour.Stops)
	return tour, nil
}

// FindTourIDByStop はコレクショングループ検索でストップの所属ツアーを探す
func (r *FirestoreToursRepository) FindTourIDByStop(ctx context.Context, stopID string) (string, error) {
	docs, err := r.client.CollectionGroup(stopsCollection).
		Where("stop_id", "==", stopID).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return "", fmt.Errorf("ストップ %s の検索失敗: %w", stopID, err)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("ストップ %s: %w", stopID, model.ErrNotFound)
	}
	return docs[0].Ref.Parent.Parent.ID, nil
}
