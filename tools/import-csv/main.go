package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/common/logger"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/media"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
	awspkg "github.com/Baruah123/Pinnacle-Paints-Client-sub000/pkg/aws"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/repository"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/services"
)

func main() {
	_ = godotenv.Load()

	var (
		file, provider, bucket, root string
		batch, concurrency           int
		delay, uploadTimeout         time.Duration
	)
	flag.StringVar(&file, "file", "", "CSV file to import")
	flag.StringVar(&provider, "media", os.Getenv("MEDIA_PROVIDER"), "media host: cloudinary or s3")
	flag.StringVar(&bucket, "bucket", os.Getenv("AWS_S3_BUCKET"), "S3 bucket for -media=s3")
	flag.StringVar(&root, "root", "", "directory relative image paths are resolved against (default: the CSV's directory)")
	flag.IntVar(&batch, "batch", services.DefaultBatchSize, "rows between progress checkpoints")
	flag.IntVar(&concurrency, "concurrency", media.DefaultConcurrency, "parallel gallery uploads")
	flag.DurationVar(&uploadTimeout, "upload-timeout", media.DefaultUploadTimeout, "deadline for a single image upload")
	flag.DurationVar(&delay, "delay", services.DefaultRecordDelay, "pause between rows (0 disables)")
	flag.Parse()

	log, err := logger.Initialize(os.Getenv("ENV"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if file == "" {
		log.Fatal("-file is required")
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		log.Fatal("Failed to read CSV", zap.String("file", file), zap.Error(err))
	}
	if root == "" {
		root = filepath.Dir(file)
	}

	ctx := context.Background()
	host, err := newHost(ctx, provider, bucket)
	if err != nil {
		log.Warn("Media host unavailable", zap.Error(err))
	}
	uploader := media.NewUploader(host,
		media.WithConcurrency(concurrency),
		media.WithUploadTimeout(uploadTimeout),
		media.WithLocalRoot(root),
		media.WithLogger(log.Named("media")),
		media.WithMetadata(media.Metadata{Folder: "pinnacle-paints/products", Quality: "auto", Tags: []string{"bulk-import"}}),
	)

	admin := repository.NewMemoryCatalog("admin")
	shop := repository.NewMemoryCatalog("shop")
	importer := services.NewImporter(uploader, repository.NewCatalogSet(admin, shop, log), services.Options{
		BatchSize:   batch,
		RecordDelay: delay,
	}, services.Hooks{}, log.Named("import"))

	job := importer.NewJob(uuid.New().String())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("Interrupt received, cancelling import")
		if err := job.Cancel(); err != nil {
			log.Warn("Cancel ignored", zap.Error(err))
		}
	}()

	if err := job.Start(ctx, string(raw)); err != nil {
		log.Fatal("Failed to start import", zap.Error(err))
	}

	updates, unsubscribe := job.Subscribe()
	defer unsubscribe()
	for u := range updates {
		log.Info("progress",
			zap.String("status", string(u.State.Status)),
			zap.Int("processed", u.State.Processed()),
			zap.Int("total", u.State.TotalRecords),
			zap.Float64("percent", u.Report.ProgressPercent),
			zap.String("health", string(u.Report.Health)),
		)
	}
	_ = job.Wait(ctx)

	if err := job.Err(); err != nil {
		log.Error("Import failed", zap.Error(err))
		os.Exit(1)
	}
	result, _ := job.Result()
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))

	n, _ := shop.Len(ctx)
	log.Info("Import finished", zap.Int("shop_products", n))
	if result.Status != models.JobStatusCompleted {
		os.Exit(2)
	}
}

func newHost(ctx context.Context, provider, bucket string) (media.Host, error) {
	switch provider {
	case "s3":
		awsCfg, err := awspkg.LoadAWSConfig(ctx, awspkg.Settings{
			Region:   os.Getenv("AWS_REGION"),
			Endpoint: os.Getenv("AWS_ENDPOINT"),
		})
		if err != nil {
			return nil, err
		}
		return media.NewS3Host(awspkg.NewS3Client(awsCfg), media.S3Config{
			Bucket:    bucket,
			Prefix:    "products/",
			Endpoint:  os.Getenv("AWS_ENDPOINT"),
			CDNDomain: os.Getenv("AWS_CLOUDFRONT_DOMAIN"),
		}), nil
	case "", "cloudinary":
		host, err := media.NewCloudinaryHost(os.Getenv("CLOUDINARY_URL"))
		if err != nil {
			return nil, err
		}
		return host, nil
	default:
		return nil, errors.New("unknown media provider " + provider)
	}
}
