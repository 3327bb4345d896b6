// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort string
	DBPath   string
	LogLevel string

	// Bearer token accepted by the dev session provider.
	DevToken  string
	DevUserID string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string

	RemoteBaseURL string

	ReconcileInterval time.Duration

	Backup BackupConfig
}

type BackupConfig struct {
	Enabled    bool
	Interval   time.Duration
	Retain     int
	Passphrase string
	S3Bucket   string
	S3Region   string
	S3Endpoint string
	S3Access   string
	S3Secret   string
}

// Load reads a .env file when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:        getenv("WELLBEAT_PORT", "8080"),
		DBPath:          getenv("WELLBEAT_DB_PATH", "wellbeat.db"),
		LogLevel:        getenv("WELLBEAT_LOG_LEVEL", "info"),
		DevToken:        getenv("WELLBEAT_DEV_TOKEN", ""),
		DevUserID:       getenv("WELLBEAT_DEV_USER_ID", "dev"),
		VAPIDPublicKey:  getenv("WELLBEAT_VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getenv("WELLBEAT_VAPID_PRIVATE_KEY", ""),
		PushSubscriber:  getenv("WELLBEAT_PUSH_SUBSCRIBER", ""),
		RemoteBaseURL:   getenv("WELLBEAT_REMOTE_URL", ""),
	}

	interval, err := getenvDuration("WELLBEAT_RECONCILE_INTERVAL", 15*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.ReconcileInterval = interval

	backupInterval, err := getenvDuration("WELLBEAT_BACKUP_INTERVAL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	retain, err := getenvInt("WELLBEAT_BACKUP_RETAIN", 7)
	if err != nil {
		return Config{}, err
	}
	cfg.Backup = BackupConfig{
		Enabled:    getenv("WELLBEAT_BACKUP_ENABLED", "false") == "true",
		Interval:   backupInterval,
		Retain:     retain,
		Passphrase: getenv("WELLBEAT_BACKUP_PASSPHRASE", ""),
		S3Bucket:   getenv("WELLBEAT_S3_BUCKET", ""),
		S3Region:   getenv("WELLBEAT_S3_REGION", "us-east-1"),
		S3Endpoint: getenv("WELLBEAT_S3_ENDPOINT", ""),
		S3Access:   getenv("WELLBEAT_S3_ACCESS_KEY", ""),
		S3Secret:   getenv("WELLBEAT_S3_SECRET_KEY", ""),
	}

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
