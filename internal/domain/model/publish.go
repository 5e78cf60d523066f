package model

import "fmt"

// PublishReport 公開可否チェックの結果
type PublishReport struct {
	CanPublish bool     `json:"can_publish"`
	Issues     []string `json:"issues"`
}

// 公開ブロック理由のメッセージ
const (
	IssueTourHasNoStops = "Tour has no stops"

	issuePOINotPublished     = "POI %s is not published"
	issuePOIHasNoCoordinates = "POI %s has no coordinates"
	issuePOIShortDescription = "POI %s has a description shorter than the minimum length"
	issuePOINotInCatalog     = "POI %s was not found in the catalog"
)

// IssuePOINotPublished 未公開POIの課題文
func IssuePOINotPublished(title string) string {
	return fmt.Sprintf(issuePOINotPublished, title)
}

// IssuePOIHasNoCoordinates 座標なしPOIの課題文
func IssuePOIHasNoCoordinates(title string) string {
	return fmt.Sprintf(issuePOIHasNoCoordinates, title)
}

// IssuePOIShortDescription 説明文不足POIの課題文
func IssuePOIShortDescription(title string) string {
	return fmt.Sprintf(issuePOIShortDescription, title)
}

// IssuePOINotInCatalog カタログに存在しないPOIの課題文
func IssuePOINotInCatalog(poiID string) string {
	return fmt.Sprintf(issuePOINotInCatalog, poiID)
}
