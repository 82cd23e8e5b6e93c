package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	apperrors "github.com/Baruah123/Pinnacle-Paints-Client-sub000/common/errors"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/common/logger"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/common/middleware"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/controllers"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/events"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/media"
	awspkg "github.com/Baruah123/Pinnacle-Paints-Client-sub000/pkg/aws"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/repository"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/routes"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/services"
)

func main() {
	// Load .env file (optional, falls back to system env)
	_ = godotenv.Load()

	log, err := logger.Initialize(os.Getenv("ENV"))
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// --- 1. Infrastructure ---

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warn("Failed to parse REDIS_URL, falling back to default", zap.Error(err))
		redisOpts = &redis.Options{Addr: "redis:6379", DB: 0}
	}
	rdb := redis.NewClient(redisOpts)

	awsCfg, err := awspkg.LoadAWSConfig(context.Background(), cfg.AWS)
	if err != nil {
		log.Fatal("Failed to load AWS config", zap.Error(err))
	}

	// Jobs outlive the requests that start them but stop with the process.
	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	// --- 2. Import pipeline ---

	uploader := media.NewUploader(newMediaHost(cfg, awsCfg, log),
		media.WithConcurrency(cfg.UploadConcurrency),
		media.WithUploadTimeout(cfg.UploadTimeout),
		media.WithLocalRoot(cfg.MediaLocalRoot),
		media.WithLogger(log.Named("media")),
		media.WithMetadata(media.Metadata{
			Folder:  cfg.MediaFolder,
			Quality: cfg.MediaQuality,
			Format:  cfg.MediaFormat,
			Tags:    []string{"pinnacle-paints", "bulk-import"},
		}),
	)

	var mirrors []repository.ProductMirror
	if cfg.DynamoTable != "" {
		mirrors = append(mirrors, repository.NewDynamoCatalog(awspkg.NewDynamoClient(awsCfg), cfg.DynamoTable))
		log.Info("Mirroring catalog to DynamoDB", zap.String("table", cfg.DynamoTable))
	}
	adminCatalog := repository.NewMemoryCatalog("admin")
	shopCatalog := repository.NewMemoryCatalog("shop")
	catalogs := repository.NewCatalogSet(adminCatalog, shopCatalog, log.Named("catalog"), mirrors...)

	publisher := newEventPublisher(cfg, awsCfg, log)
	defer publisher.Close()

	metricsClient := awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	cache := controllers.NewCacheManager(rdb)
	queue := services.NewImportQueue(rdb, cfg.BulkStorageDir)

	manager := services.NewManager(appCtx, uploader, catalogs, services.Options{
		BatchSize:         cfg.BatchSize,
		RecordDelay:       cfg.RecordDelay,
		MaxRetainedErrors: cfg.MaxRetainedErrors,
	}, services.ManagerDeps{
		Store:          services.NewRedisStatusStore(rdb, 0),
		Events:         publisher,
		Metrics:        metricsClient,
		CatalogChanged: cache.OnCatalogChanged,
		Queue:          queue,
	}, log.Named("import"))

	go services.StartImportQueueWorker(appCtx, queue, manager)

	// --- 3. HTTP Server & Middleware ---

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.MetricsMiddleware(metricsClient, "catalog-service"))
	r.Use(apperrors.ErrorMiddleware())

	validator := controllers.NewRequestValidator()
	importController := controllers.NewImportController(manager, validator)
	catalogController := controllers.NewCatalogController(adminCatalog, shopCatalog, cache, validator)

	// --- 4. Route Registration ---

	routes.RegisterRoutes(r, importController, catalogController, []byte(cfg.JWTSecret))

	// --- 5. Graceful Shutdown ---

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Catalog Service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down Catalog Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Running jobs stop at their next row boundary.
	stopApp()

	if err := rdb.Close(); err != nil {
		log.Error("Failed to close Redis", zap.Error(err))
	}

	log.Info("Catalog Service stopped gracefully")
}

// newMediaHost returns nil when the provider cannot be initialised; jobs then
// fail with a pipeline fault instead of the service refusing to start.
func newMediaHost(cfg *Config, awsCfg sdkaws.Config, log *zap.Logger) media.Host {
	switch cfg.MediaProvider {
	case "s3":
		return media.NewS3Host(awspkg.NewS3Client(awsCfg), media.S3Config{
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Endpoint:  cfg.AWS.Endpoint,
			CDNDomain: cfg.CloudFrontDomain,
		})
	default:
		host, err := media.NewCloudinaryHost(cfg.CloudinaryURL)
		if err != nil {
			log.Warn("Cloudinary not configured, imports will fail until it is", zap.Error(err))
			return nil
		}
		return host
	}
}

func newEventPublisher(cfg *Config, awsCfg sdkaws.Config, log *zap.Logger) events.Publisher {
	switch cfg.EventsBackend {
	case "sns":
		p, err := events.NewSNSPublisher(awspkg.NewSNSClient(awsCfg), cfg.SNSTopicARN)
		if err != nil {
			log.Warn("SNS events disabled", zap.Error(err))
			return events.NoopPublisher{}
		}
		return p
	case "kafka":
		p, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Warn("Kafka events disabled", zap.Error(err))
			return events.NoopPublisher{}
		}
		return p
	default:
		return events.NoopPublisher{}
	}
}
