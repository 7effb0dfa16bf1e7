package backend

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// LoadAWSConfig resolves the AWS SDK configuration from the default chain
// (environment, shared config files, container and instance roles). A
// non-empty region overrides whatever the chain resolves.
func LoadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// NewSSMFetcherFromConfig builds an SSMFetcher backed by a real SSM client.
// endpointURL, when set, replaces the resolved service endpoint (LocalStack
// and other emulators).
func NewSSMFetcherFromConfig(cfg aws.Config, endpointURL string, withDecryption bool) *SSMFetcher {
	client := ssm.NewFromConfig(cfg, func(o *ssm.Options) {
		if endpointURL != "" {
			o.BaseEndpoint = aws.String(endpointURL)
		}
	})
	return NewSSMFetcher(client, withDecryption)
}

// NewSecretsManagerFetcherFromConfig builds a SecretsManagerFetcher backed by
// a real Secrets Manager client. endpointURL behaves as in
// NewSSMFetcherFromConfig.
func NewSecretsManagerFetcherFromConfig(cfg aws.Config, endpointURL string) *SecretsManagerFetcher {
	client := secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		if endpointURL != "" {
			o.BaseEndpoint = aws.String(endpointURL)
		}
	})
	return NewSecretsManagerFetcher(client)
}
