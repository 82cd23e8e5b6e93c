package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/media"
	awspkg "github.com/Baruah123/Pinnacle-Paints-Client-sub000/pkg/aws"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/services"
	"go.uber.org/zap"
)

// Config holds all environment variables for the catalog service.
type Config struct {
	Port      string
	Env       string
	JWTSecret string
	RedisURL  string

	AWS awspkg.Settings

	// MediaProvider is "cloudinary" or "s3".
	MediaProvider     string
	CloudinaryURL     string
	MediaFolder       string
	MediaQuality      string
	MediaFormat       string
	MediaLocalRoot    string
	S3Bucket          string
	S3Prefix          string
	CloudFrontDomain  string
	UploadConcurrency int
	UploadTimeout     time.Duration

	BatchSize         int
	RecordDelay       time.Duration
	MaxRetainedErrors int
	BulkStorageDir    string

	DynamoTable string

	// EventsBackend is "sns", "kafka" or "none".
	EventsBackend string
	SNSTopicARN   string
	KafkaBrokers  []string
	KafkaTopic    string

	CloudWatchEnabled   bool
	CloudWatchNamespace string

	AllowedOrigins []string
}

// LoadConfig loads environment variables into Config and validates them. With
// AWS_USE_SECRETS=true the JWT secret and Cloudinary URL are read from Secrets
// Manager, falling back to env vars on failure.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:      getEnv("PORT", "8082"),
		Env:       getEnv("ENV", "development"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		RedisURL:  getEnv("REDIS_URL", "redis://redis:6379"),
		AWS: awspkg.Settings{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Endpoint:        os.Getenv("AWS_ENDPOINT"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
		MediaProvider:       strings.ToLower(getEnv("MEDIA_PROVIDER", "cloudinary")),
		CloudinaryURL:       os.Getenv("CLOUDINARY_URL"),
		MediaFolder:         getEnv("MEDIA_FOLDER", "pinnacle-paints/products"),
		MediaQuality:        getEnv("MEDIA_QUALITY", "auto"),
		MediaFormat:         os.Getenv("MEDIA_FORMAT"),
		MediaLocalRoot:      getEnv("MEDIA_LOCAL_ROOT", "media"),
		S3Bucket:            os.Getenv("AWS_S3_BUCKET"),
		S3Prefix:            getEnv("AWS_S3_PREFIX", "products/"),
		CloudFrontDomain:    os.Getenv("AWS_CLOUDFRONT_DOMAIN"),
		BulkStorageDir:      os.Getenv("BULK_STORAGE_DIR"),
		DynamoTable:         os.Getenv("DDB_TABLE_CATALOG"),
		EventsBackend:       strings.ToLower(getEnv("EVENTS_BACKEND", "none")),
		SNSTopicARN:         os.Getenv("SNS_TOPIC_ARN"),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "catalog-import-events"),
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "PinnaclePaints/Catalog"),
		AllowedOrigins:      splitCSV(getEnv("ALLOWED_ORIGINS", "*")),
		KafkaBrokers:        splitCSV(os.Getenv("KAFKA_BROKERS")),
	}

	var err error
	if cfg.UploadConcurrency, err = getInt("UPLOAD_CONCURRENCY", 3); err != nil {
		return nil, err
	}
	if cfg.UploadTimeout, err = getDuration("MEDIA_UPLOAD_TIMEOUT", media.DefaultUploadTimeout); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = getInt("IMPORT_BATCH_SIZE", services.DefaultBatchSize); err != nil {
		return nil, err
	}
	if cfg.MaxRetainedErrors, err = getInt("IMPORT_MAX_ERRORS", 0); err != nil {
		return nil, err
	}
	if cfg.RecordDelay, err = getDuration("IMPORT_RECORD_DELAY", services.DefaultRecordDelay); err != nil {
		return nil, err
	}
	cfg.CloudWatchEnabled, err = strconv.ParseBool(getEnv("CLOUDWATCH_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("CLOUDWATCH_ENABLED: %w", err)
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		cfg.loadSecrets(context.Background())
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.MediaProvider {
	case "cloudinary", "s3":
	default:
		return nil, fmt.Errorf("MEDIA_PROVIDER must be cloudinary or s3, got %q", cfg.MediaProvider)
	}
	switch cfg.EventsBackend {
	case "sns", "kafka", "none":
	default:
		return nil, fmt.Errorf("EVENTS_BACKEND must be sns, kafka or none, got %q", cfg.EventsBackend)
	}
	if cfg.EventsBackend == "kafka" && len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS is required for the kafka events backend")
	}

	return cfg, nil
}

func (cfg *Config) loadSecrets(ctx context.Context) {
	awsCfg, err := awspkg.LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		zap.L().Warn("Secrets Manager unavailable, using env vars", zap.Error(err))
		return
	}
	sm := awspkg.NewSecretsClient(awsCfg)

	if v, err := sm.GetSecret(ctx, "catalog/JWT_SECRET"); err == nil && v != "" {
		cfg.JWTSecret = v
	}
	if v, err := sm.GetSecret(ctx, "catalog/CLOUDINARY_URL"); err == nil && v != "" {
		cfg.CloudinaryURL = v
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// getDuration accepts Go durations ("250ms") or a bare number of milliseconds.
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitCSV(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
