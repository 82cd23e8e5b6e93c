package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func newTestMetrics(enabled bool) (*MetricsClient, *fakeCloudWatch) {
	fake := &fakeCloudWatch{}
	return &MetricsClient{
		client:    fake,
		namespace: "Test/Import",
		enabled:   enabled,
		now:       func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}, fake
}

func TestRecordBatch(t *testing.T) {
	m, fake := newTestMetrics(true)
	err := m.RecordBatch(context.Background(), "job-1", models.PerformanceSnapshot{
		ProcessedRecords:        10,
		UploadedImages:          4,
		ErrorRate:               0.1,
		ThroughputPerMinute:     30,
		AverageProcessingTimeMs: 120,
	})
	require.NoError(t, err)
	require.Len(t, fake.inputs, 1)

	in := fake.inputs[0]
	assert.Equal(t, "Test/Import", *in.Namespace)
	require.Len(t, in.MetricData, 5)

	byName := map[string]types.MetricDatum{}
	for _, d := range in.MetricData {
		byName[*d.MetricName] = d
		require.Len(t, d.Dimensions, 1)
		assert.Equal(t, "JobID", *d.Dimensions[0].Name)
		assert.Equal(t, "job-1", *d.Dimensions[0].Value)
	}
	assert.Equal(t, 10.0, *byName[MetricImportProcessed].Value)
	assert.Equal(t, 0.1, *byName[MetricImportErrorRate].Value)
	assert.Equal(t, types.StandardUnitMilliseconds, byName[MetricImportRowLatency].Unit)
}

func TestDisabledMetricsSendNothing(t *testing.T) {
	m, fake := newTestMetrics(false)
	assert.NoError(t, m.RecordBatch(context.Background(), "job-1", models.PerformanceSnapshot{}))
	assert.NoError(t, m.RecordCount(context.Background(), MetricHTTPRequests, nil))
	assert.Empty(t, fake.inputs)

	var nilClient *MetricsClient
	assert.False(t, nilClient.IsEnabled())
	assert.NoError(t, nilClient.RecordLatency(context.Background(), MetricHTTPLatency, time.Second, nil))
}

func TestPutMetricBatchChunks(t *testing.T) {
	m, fake := newTestMetrics(true)
	data := make([]types.MetricDatum, 45)
	require.NoError(t, m.PutMetricBatch(context.Background(), data))

	require.Len(t, fake.inputs, 3)
	assert.Len(t, fake.inputs[0].MetricData, 20)
	assert.Len(t, fake.inputs[2].MetricData, 5)
}

func TestPutMetricBatchError(t *testing.T) {
	m, fake := newTestMetrics(true)
	fake.err = errors.New("throttled")
	err := m.RecordCount(context.Background(), MetricHTTPErrors, map[string]string{"Service": "catalog"})
	assert.ErrorContains(t, err, "failed to put metric batch")
}

func TestRecordLatency(t *testing.T) {
	m, fake := newTestMetrics(true)
	require.NoError(t, m.RecordLatency(context.Background(), MetricHTTPLatency, 1500*time.Millisecond, map[string]string{"Path": "/products"}))

	d := fake.inputs[0].MetricData[0]
	assert.Equal(t, 1500.0, *d.Value)
	assert.Equal(t, types.StandardUnitMilliseconds, d.Unit)
	assert.Equal(t, "Path", *d.Dimensions[0].Name)
}

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{}, f.err
}

func TestSNSClientPublish(t *testing.T) {
	fake := &fakeSNS{}
	c := &SNSClient{client: fake}

	require.NoError(t, c.Publish(context.Background(), "arn:aws:sns:eu-west-1:1:imports", []byte(`{"a":1}`), map[string]string{"event_type": "x"}))
	assert.Equal(t, `{"a":1}`, *fake.input.Message)
	assert.Equal(t, "x", *fake.input.MessageAttributes["event_type"].StringValue)
	assert.Equal(t, "String", *fake.input.MessageAttributes["event_type"].DataType)

	assert.Error(t, c.Publish(context.Background(), "", nil, nil))

	fake.err = errors.New("boom")
	assert.ErrorContains(t, c.Publish(context.Background(), "arn", nil, nil), "sns publish failed")
}

type fakeSecrets struct {
	calls  int
	values map[string]string
}

func (f *fakeSecrets) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	v, ok := f.values[*in.SecretId]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: &v}, nil
}

func TestSecretsClientCaches(t *testing.T) {
	fake := &fakeSecrets{values: map[string]string{"catalog/JWT_SECRET": "s3cret"}}
	c := &SecretsClient{client: fake, cache: make(map[string]string)}

	for i := 0; i < 2; i++ {
		v, err := c.GetSecret(context.Background(), "catalog/JWT_SECRET")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", v)
	}
	assert.Equal(t, 1, fake.calls)

	_, err := c.GetSecret(context.Background(), "missing")
	assert.ErrorContains(t, err, "failed to get secret missing")
}
