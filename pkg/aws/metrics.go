package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names.
const (
	MetricImportProcessed  = "ImportRowsProcessed"
	MetricImportErrorRate  = "ImportErrorRate"
	MetricImportThroughput = "ImportThroughputPerMinute"
	MetricImportRowLatency = "ImportRowLatency"
	MetricImportImages     = "ImportImagesUploaded"

	MetricHTTPRequests = "HTTPRequests"
	MetricHTTPErrors   = "HTTPErrors"
	MetricHTTPLatency  = "HTTPLatency"
)

const metricBatchSize = 20

type cloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsClient wraps AWS CloudWatch Metrics operations
type MetricsClient struct {
	client    cloudWatchAPI
	namespace string
	enabled   bool
	now       func() time.Time
}

// NewMetricsClient creates a CloudWatch metrics client. A disabled client
// accepts every call and sends nothing.
func NewMetricsClient(cfg sdkaws.Config, namespace string, enabled bool) *MetricsClient {
	if namespace == "" {
		namespace = "PinnaclePaints/CatalogImport"
	}
	return &MetricsClient{
		client:    cloudwatch.NewFromConfig(cfg),
		namespace: namespace,
		enabled:   enabled,
		now:       time.Now,
	}
}

// IsEnabled returns whether CloudWatch metrics are enabled
func (m *MetricsClient) IsEnabled() bool {
	return m != nil && m.enabled
}

// PutMetricBatch sends metric data points in chunks CloudWatch accepts.
func (m *MetricsClient) PutMetricBatch(ctx context.Context, metrics []types.MetricDatum) error {
	if !m.IsEnabled() || len(metrics) == 0 {
		return nil
	}
	for i := 0; i < len(metrics); i += metricBatchSize {
		end := i + metricBatchSize
		if end > len(metrics) {
			end = len(metrics)
		}
		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  sdkaws.String(m.namespace),
			MetricData: metrics[i:end],
		})
		if err != nil {
			return fmt.Errorf("failed to put metric batch: %w", err)
		}
	}
	return nil
}

// RecordBatch publishes the import snapshot taken at a batch boundary.
func (m *MetricsClient) RecordBatch(ctx context.Context, jobID string, snap models.PerformanceSnapshot) error {
	if !m.IsEnabled() {
		return nil
	}
	ts := sdkaws.Time(m.now())
	dims := []types.Dimension{{Name: sdkaws.String("JobID"), Value: sdkaws.String(jobID)}}
	datum := func(name string, value float64, unit types.StandardUnit) types.MetricDatum {
		return types.MetricDatum{
			MetricName: sdkaws.String(name),
			Value:      sdkaws.Float64(value),
			Unit:       unit,
			Timestamp:  ts,
			Dimensions: dims,
		}
	}
	return m.PutMetricBatch(ctx, []types.MetricDatum{
		datum(MetricImportProcessed, float64(snap.ProcessedRecords), types.StandardUnitCount),
		datum(MetricImportImages, float64(snap.UploadedImages), types.StandardUnitCount),
		datum(MetricImportErrorRate, snap.ErrorRate, types.StandardUnitNone),
		datum(MetricImportThroughput, snap.ThroughputPerMinute, types.StandardUnitNone),
		datum(MetricImportRowLatency, snap.AverageProcessingTimeMs, types.StandardUnitMilliseconds),
	})
}

// PutMetric sends a single data point with the given dimensions.
func (m *MetricsClient) PutMetric(ctx context.Context, metricName string, value float64, unit types.StandardUnit, dimensions map[string]string) error {
	if !m.IsEnabled() {
		return nil
	}
	dims := make([]types.Dimension, 0, len(dimensions))
	for k, v := range dimensions {
		dims = append(dims, types.Dimension{Name: sdkaws.String(k), Value: sdkaws.String(v)})
	}
	return m.PutMetricBatch(ctx, []types.MetricDatum{{
		MetricName: sdkaws.String(metricName),
		Value:      sdkaws.Float64(value),
		Unit:       unit,
		Timestamp:  sdkaws.Time(m.now()),
		Dimensions: dims,
	}})
}

// RecordCount increments a counter metric
func (m *MetricsClient) RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error {
	return m.PutMetric(ctx, metricName, 1, types.StandardUnitCount, dimensions)
}

// RecordLatency records a latency/duration metric in milliseconds
func (m *MetricsClient) RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error {
	return m.PutMetric(ctx, metricName, float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
}
