package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidIndex 挿入・移動先インデックスが範囲外
	ErrInvalidIndex = errors.New("invalid index")
	// ErrNotFound ツアー・ストップ・POIが存在しない
	ErrNotFound = errors.New("not found")
	// ErrPublishBlocked 公開条件を満たしていない
	ErrPublishBlocked = errors.New("publish blocked")
	// ErrPersistenceFailure メモリ上の変更後に永続化へ失敗した
	ErrPersistenceFailure = errors.New("persistence failure")
	// ErrInvalidCoordinates 上書き座標が不正
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrInvalidDwellTime 滞在時間が負
	ErrInvalidDwellTime = errors.New("invalid dwell time")
)

// PublishBlockedError 公開がブロックされた理由の一覧を持つエラー
type PublishBlockedError struct {
	Issues []string
}

func (e *PublishBlockedError) Error() string {
	return fmt.Sprintf("publish blocked: %s", strings.Join(e.Issues, "; "))
}

// Is errors.Is(err, ErrPublishBlocked) を満たす
func (e *PublishBlockedError) Is(target error) bool {
	return target == ErrPublishBlocked
}

// PersistenceError 永続化の失敗（ロールバックはしない）
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: changes may not be saved: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is errors.Is(err, ErrPersistenceFailure) を満たす
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistenceFailure
}

// NewPersistenceError 永続化エラーを生成する
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}
