package main

import (
	"testing"
	"time"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/media"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8082", cfg.Port)
	assert.Equal(t, "cloudinary", cfg.MediaProvider)
	assert.Equal(t, "none", cfg.EventsBackend)
	assert.Equal(t, services.DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, services.DefaultRecordDelay, cfg.RecordDelay)
	assert.Equal(t, 3, cfg.UploadConcurrency)
	assert.Equal(t, media.DefaultUploadTimeout, cfg.UploadTimeout)
	assert.Equal(t, "media", cfg.MediaLocalRoot)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.CloudWatchEnabled)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("MEDIA_PROVIDER", "S3")
	t.Setenv("IMPORT_BATCH_SIZE", "25")
	t.Setenv("IMPORT_RECORD_DELAY", "0")
	t.Setenv("MEDIA_UPLOAD_TIMEOUT", "30s")
	t.Setenv("EVENTS_BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.MediaProvider)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Zero(t, cfg.RecordDelay)
	assert.Equal(t, 30*time.Second, cfg.UploadTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Len(t, cfg.AllowedOrigins, 2)
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET is required"},
		{"unknown media provider", map[string]string{"MEDIA_PROVIDER": "ftp"}, "MEDIA_PROVIDER"},
		{"unknown events backend", map[string]string{"EVENTS_BACKEND": "rabbit"}, "EVENTS_BACKEND"},
		{"kafka without brokers", map[string]string{"EVENTS_BACKEND": "kafka", "KAFKA_BROKERS": ""}, "KAFKA_BROKERS"},
		{"bad batch size", map[string]string{"IMPORT_BATCH_SIZE": "ten"}, "IMPORT_BATCH_SIZE"},
		{"bad delay", map[string]string{"IMPORT_RECORD_DELAY": "soon"}, "IMPORT_RECORD_DELAY"},
		{"bad upload timeout", map[string]string{"MEDIA_UPLOAD_TIMEOUT": "later"}, "MEDIA_UPLOAD_TIMEOUT"},
		{"bad cloudwatch flag", map[string]string{"CLOUDWATCH_ENABLED": "maybe"}, "CLOUDWATCH_ENABLED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "secret")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestGetDuration(t *testing.T) {
	t.Setenv("DELAY", "250")
	d, err := getDuration("DELAY", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	t.Setenv("DELAY", "1.5s")
	d, err = getDuration("DELAY", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)

	t.Setenv("DELAY", "")
	d, err = getDuration("DELAY", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)
}
