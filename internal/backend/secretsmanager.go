package backend

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"secretshelper/internal/types"
)

// secretsManagerClient is the subset of the Secrets Manager SDK client used
// by SecretsManagerFetcher.
type secretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerFetcher fetches secrets from AWS Secrets Manager. Identifiers
// are secret names or ARNs. Only the AWSCURRENT string value is returned;
// binary-only secrets are reported as not found.
type SecretsManagerFetcher struct {
	client secretsManagerClient
}

// NewSecretsManagerFetcher creates a SecretsManagerFetcher around a Secrets
// Manager client.
func NewSecretsManagerFetcher(client secretsManagerClient) *SecretsManagerFetcher {
	return &SecretsManagerFetcher{client: client}
}

// Fetch retrieves a single secret string.
func (f *SecretsManagerFetcher) Fetch(ctx context.Context, id string) types.FetchOutcome {
	outcome, _ := f.FetchClassified(ctx, id)
	return outcome
}

// FetchClassified implements ClassifiedFetcher.
func (f *SecretsManagerFetcher) FetchClassified(ctx context.Context, id string) (types.FetchOutcome, error) {
	output, err := f.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return failedFetch(err)
	}

	if output == nil || output.SecretString == nil {
		return types.FetchFailed("secret not found"), nil
	}

	return types.Fetched(aws.ToString(output.SecretString)), nil
}
