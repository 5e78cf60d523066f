package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"TourRoute-App/internal/domain/model"
)

// 保存先・カタログのバックエンド種別
const (
	StoreBackendPostgres  = "postgres"
	StoreBackendSQLite    = "sqlite"
	StoreBackendFirestore = "firestore"

	CatalogBackendSQL      = "sql"
	CatalogBackendSupabase = "supabase"
)

// Config サーバー全体の設定
type Config struct {
	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"oneof=debug info warn error"`
	LogFile  string

	StoreBackend   string `validate:"oneof=postgres sqlite firestore"`
	CatalogBackend string `validate:"oneof=sql supabase"`

	SQLitePath         string `validate:"required_if=StoreBackend sqlite"`
	DatabaseURL        string
	SupabaseURL        string `validate:"omitempty,url"`
	SupabaseAnonKey    string `validate:"required_if=CatalogBackend supabase"`
	SupabaseDBPassword string
	FirestoreProjectID string `validate:"required_if=StoreBackend firestore"`

	MinDescriptionLength int           `validate:"gte=0"`
	CatalogTimeout       time.Duration `validate:"gt=0"`
	SessionIdleTimeout   time.Duration `validate:"gt=0"`
	AutoMigrate          bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadConfig は .env と環境変数から設定を読み込む
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug(".envファイルが見つかりません（環境変数を使用）")
	}

	minLength, err := strconv.Atoi(getEnv("MIN_DESCRIPTION_LENGTH", strconv.Itoa(model.DefaultMinDescriptionLength)))
	if err != nil {
		return nil, fmt.Errorf("MIN_DESCRIPTION_LENGTH が不正です: %w", err)
	}
	timeout, err := time.ParseDuration(getEnv("CATALOG_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("CATALOG_TIMEOUT が不正です: %w", err)
	}
	idleTimeout, err := time.ParseDuration(getEnv("SESSION_IDLE_TIMEOUT", "30m"))
	if err != nil {
		return nil, fmt.Errorf("SESSION_IDLE_TIMEOUT が不正です: %w", err)
	}
	autoMigrate, err := strconv.ParseBool(getEnv("AUTO_MIGRATE", "true"))
	if err != nil {
		return nil, fmt.Errorf("AUTO_MIGRATE が不正です: %w", err)
	}

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFile:              getEnv("LOG_FILE", "./logs/app.log"),
		StoreBackend:         getEnv("STORE_BACKEND", StoreBackendSQLite),
		CatalogBackend:       getEnv("CATALOG_BACKEND", CatalogBackendSQL),
		SQLitePath:           getEnv("SQLITE_PATH", "./data/tours.db"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		SupabaseURL:          getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:      getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseDBPassword:   getEnv("SUPABASE_DB_PASSWORD", ""),
		FirestoreProjectID:   getEnv("FIRESTORE_PROJECT_ID", ""),
		MinDescriptionLength: minLength,
		CatalogTimeout:       timeout,
		SessionIdleTimeout:   idleTimeout,
		AutoMigrate:          autoMigrate,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定値の整合性を検証する
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("設定が不正です: %w", err)
	}
	if c.StoreBackend == StoreBackendPostgres && c.DatabaseURL == "" && (c.SupabaseURL == "" || c.SupabaseDBPassword == "") {
		return fmt.Errorf("postgres には DATABASE_URL か SUPABASE_URL + SUPABASE_DB_PASSWORD が必要です")
	}
	if c.CatalogBackend == CatalogBackendSupabase && c.SupabaseURL == "" {
		return fmt.Errorf("supabase カタログには SUPABASE_URL が必要です")
	}
	if c.CatalogBackend == CatalogBackendSQL && c.StoreBackend == StoreBackendFirestore && c.DatabaseURL == "" {
		return fmt.Errorf("firestore と sql カタログの組み合わせには DATABASE_URL が必要です")
	}
	return nil
}

// getEnv は環境変数を読み、未設定ならデフォルト値を返す
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}
