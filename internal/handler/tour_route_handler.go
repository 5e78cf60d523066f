package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"TourRoute-App/internal/domain/model"
	"TourRoute-App/internal/usecase"
)

// persistenceFailureMessage 永続化失敗時にエディタへ表示する文言
const persistenceFailureMessage = "changes may not be saved, please refresh"

// TourRouteHandler はツアールート編集APIのハンドラー
type TourRouteHandler struct {
	tourRouteUseCase usecase.TourRouteUseCase
}

// NewTourRouteHandler は新しいTourRouteHandlerインスタンスを作成
func NewTourRouteHandler(tourRouteUseCase usecase.TourRouteUseCase) *TourRouteHandler {
	return &TourRouteHandler{
		tourRouteUseCase: tourRouteUseCase,
	}
}

// AddStopRequest ストップ追加リクエスト
type AddStopRequest struct {
	POIID string `json:"poi_id" binding:"required"`
}

// MoveStopRequest ストップ移動リクエスト
type MoveStopRequest struct {
	ToIndex *int `json:"to_index" binding:"required"`
}

// OverrideRequest 座標上書きリクエスト
type OverrideRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lon *float64 `json:"lon" binding:"required"`
}

// tourResponse ツアーと公開状態
func tourResponse(tour *model.Tour) gin.H {
	return gin.H{
		"tour":  tour,
		"state": model.PublishStateOf(tour),
	}
}

// GetTour は編集中のツアーを返す
// GET /api/tours/:tourId
func (h *TourRouteHandler) GetTour(c *gin.Context) {
	tour, err := h.tourRouteUseCase.GetTour(c.Request.Context(), c.Param("tourId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tourResponse(tour))
}

// RefreshTour はローカル状態を破棄して読み直す
// POST /api/tours/:tourId/refresh
func (h *TourRouteHandler) RefreshTour(c *gin.Context) {
	tour, err := h.tourRouteUseCase.Refresh(c.Request.Context(), c.Param("tourId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tourResponse(tour))
}

// AddStop はPOIを末尾に追加する
// POST /api/tours/:tourId/stops
func (h *TourRouteHandler) AddStop(c *gin.Context) {
	var req AddStopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	stop, err := h.tourRouteUseCase.AddStop(c.Request.Context(), c.Param("tourId"), req.POIID)
	if err != nil {
		if stop != nil && errors.Is(err, model.ErrPersistenceFailure) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   persistenceFailureMessage,
				"details": err.Error(),
				"stop":    stop,
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"stop": stop})
}

// RemoveStop はストップを削除する
// DELETE /api/tours/:tourId/stops/:stopId
func (h *TourRouteHandler) RemoveStop(c *gin.Context) {
	if err := h.tourRouteUseCase.RemoveStop(c.Request.Context(), c.Param("tourId"), c.Param("stopId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MoveStop はストップを指定位置へ移動する
// PUT /api/tours/:tourId/stops/:stopId/position
func (h *TourRouteHandler) MoveStop(c *gin.Context) {
	var req MoveStopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tourID := c.Param("tourId")
	if err := h.tourRouteUseCase.MoveStop(c.Request.Context(), tourID, c.Param("stopId"), *req.ToIndex); err != nil {
		respondError(c, err)
		return
	}
	h.respondTour(c, tourID)
}

// SetOverride はストップの座標を上書きする
// PUT /api/stops/:stopId/override
func (h *TourRouteHandler) SetOverride(c *gin.Context) {
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.tourRouteUseCase.SetOverride(c.Request.Context(), c.Param("stopId"), *req.Lat, *req.Lon); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearOverride は座標の上書きを解除する
// DELETE /api/stops/:stopId/override
func (h *TourRouteHandler) ClearOverride(c *gin.Context) {
	if err := h.tourRouteUseCase.ClearOverride(c.Request.Context(), c.Param("stopId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateTransition は移動区間のメタデータを部分更新する
// PATCH /api/stops/:stopId/transition
func (h *TourRouteHandler) UpdateTransition(c *gin.Context) {
	var req model.TransitionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.tourRouteUseCase.UpdateTransition(c.Request.Context(), c.Param("stopId"), req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetRouteStats はルート統計を返す
// GET /api/tours/:tourId/stats
func (h *TourRouteHandler) GetRouteStats(c *gin.Context) {
	stats, err := h.tourRouteUseCase.GetRouteStats(c.Request.Context(), c.Param("tourId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetRouteGeoJSON は地図表示用のGeoJSONを返す
// GET /api/tours/:tourId/route.geojson
func (h *TourRouteHandler) GetRouteGeoJSON(c *gin.Context) {
	fc, err := h.tourRouteUseCase.GetRouteGeoJSON(c.Request.Context(), c.Param("tourId"))
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}

// CheckPublishability は公開可否と課題一覧を返す
// GET /api/tours/:tourId/publishability
func (h *TourRouteHandler) CheckPublishability(c *gin.Context) {
	report, err := h.tourRouteUseCase.CheckPublishability(c.Request.Context(), c.Param("tourId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Publish はツアーを公開する
// POST /api/tours/:tourId/publish
func (h *TourRouteHandler) Publish(c *gin.Context) {
	tourID := c.Param("tourId")
	if err := h.tourRouteUseCase.Publish(c.Request.Context(), tourID); err != nil {
		respondError(c, err)
		return
	}
	h.respondTour(c, tourID)
}

// Unpublish はツアーを下書きに戻す
// POST /api/tours/:tourId/unpublish
func (h *TourRouteHandler) Unpublish(c *gin.Context) {
	tourID := c.Param("tourId")
	if err := h.tourRouteUseCase.Unpublish(c.Request.Context(), tourID); err != nil {
		respondError(c, err)
		return
	}
	h.respondTour(c, tourID)
}

func (h *TourRouteHandler) respondTour(c *gin.Context, tourID string) {
	tour, err := h.tourRouteUseCase.GetTour(c.Request.Context(), tourID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tourResponse(tour))
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "リクエストの形式が正しくありません",
		"details": err.Error(),
	})
}

// respondError はドメインエラーをHTTPステータスに変換する
func respondError(c *gin.Context, err error) {
	var blocked *model.PublishBlockedError

	switch {
	case errors.As(err, &blocked):
		c.JSON(http.StatusConflict, gin.H{
			"error":  "ツアーを公開できません",
			"issues": blocked.Issues,
		})
	case errors.Is(err, model.ErrPersistenceFailure):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   persistenceFailureMessage,
			"details": err.Error(),
		})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "見つかりません",
			"details": err.Error(),
		})
	case errors.Is(err, model.ErrInvalidIndex),
		errors.Is(err, model.ErrInvalidCoordinates),
		errors.Is(err, model.ErrInvalidDwellTime):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "バリデーションエラー",
			"details": err.Error(),
		})
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("❌ リクエスト処理に失敗しました")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "内部エラーが発生しました",
		})
	}
}
