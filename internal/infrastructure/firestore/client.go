package firestore

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// FirestoreClient Firestoreクライアントのラッパー
type FirestoreClient struct {
	client *firestore.Client
}

// NewFirestoreClient 環境に応じた認証でFirestoreクライアントを作成
// FIRESTORE_EMULATOR_HOST が設定されていればエミュレータに接続する
func NewFirestoreClient(ctx context.Context, projectID string) (*FirestoreClient, error) {
	var opts []option.ClientOption

	switch {
	case os.Getenv("FIRESTORE_EMULATOR_HOST") != "":
		logrus.WithField("host", os.Getenv("FIRESTORE_EMULATOR_HOST")).Info("🧪 Firestoreエミュレータを使用")
	case os.Getenv("K_SERVICE") != "":
		logrus.Info("☁️ Cloud Run環境: デフォルト認証を使用")
	default:
		credentialsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
		if credentialsFile != "" {
			if _, err := os.Stat(credentialsFile); err == nil {
				logrus.WithField("file", credentialsFile).Info("📄 認証ファイルを使用")
				opts = append(opts, option.WithCredentialsFile(credentialsFile))
			} else {
				logrus.WithField("file", credentialsFile).Warn("⚠️ 認証ファイルが見つかりません（デフォルト認証を使用）")
			}
		}
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("Firestoreクライアントの作成に失敗: %w", err)
	}
	logrus.WithField("project_id", projectID).Info("✅ Firestoreクライアントを初期化しました")

	return &FirestoreClient{client: client}, nil
}

// Close クライアントを閉じる
func (fc *FirestoreClient) Close() error {
	return fc.client.Close()
}

// GetClient Firestoreクライアントを取得
func (fc *FirestoreClient) GetClient() *firestore.Client {
	return fc.client
}
