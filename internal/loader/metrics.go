package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwTypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"secretshelper/internal/types"
)

// LoadStats summarizes a completed load.
type LoadStats struct {
	Backend   string
	Requested int
	Fetched   int
	Failed    int
	Duration  time.Duration
}

// MetricPublisher receives the summary of every load. Errors are logged by the
// loader and never change the load result.
type MetricPublisher interface {
	PublishLoad(ctx context.Context, stats LoadStats) error
}

type noopPublisher struct{}

func (noopPublisher) PublishLoad(context.Context, LoadStats) error { return nil }

// cloudwatchAPI is the subset of the CloudWatch SDK client used by the publisher.
type cloudwatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchPublisher publishes load counters to CloudWatch under a namespace,
// dimensioned by backend.
type CloudWatchPublisher struct {
	client    cloudwatchAPI
	namespace string
}

// NewCloudWatchPublisher creates a CloudWatchPublisher.
func NewCloudWatchPublisher(client cloudwatchAPI, namespace string) *CloudWatchPublisher {
	return &CloudWatchPublisher{client: client, namespace: namespace}
}

// NewCloudWatchPublisherFromConfig creates a CloudWatchPublisher backed by a
// real CloudWatch client.
func NewCloudWatchPublisherFromConfig(cfg aws.Config, namespace string) *CloudWatchPublisher {
	return NewCloudWatchPublisher(cloudwatch.NewFromConfig(cfg), namespace)
}

// PublishLoad emits SecretsRequested, SecretsFetched, SecretsFailed and
// LoadDuration in a single PutMetricData call.
func (p *CloudWatchPublisher) PublishLoad(ctx context.Context, stats LoadStats) error {
	dims := []cwTypes.Dimension{
		{
			Name:  aws.String(types.DimBackend),
			Value: aws.String(stats.Backend),
		},
	}

	count := func(name string, v int) cwTypes.MetricDatum {
		return cwTypes.MetricDatum{
			MetricName: aws.String(name),
			Value:      aws.Float64(float64(v)),
			Unit:       cwTypes.StandardUnitCount,
			Dimensions: dims,
		}
	}

	_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(p.namespace),
		MetricData: []cwTypes.MetricDatum{
			count(types.MetricSecretsRequested, stats.Requested),
			count(types.MetricSecretsFetched, stats.Fetched),
			count(types.MetricSecretsFailed, stats.Failed),
			{
				MetricName: aws.String(types.MetricLoadDuration),
				Value:      aws.Float64(float64(stats.Duration.Milliseconds())),
				Unit:       cwTypes.StandardUnitMilliseconds,
				Dimensions: dims,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish load metrics: %w", err)
	}
	return nil
}
