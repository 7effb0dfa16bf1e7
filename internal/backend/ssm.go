package backend

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"secretshelper/internal/types"
)

// ssmClient is the subset of the SSM SDK client used by SSMFetcher.
// This interface enables testing with a mock client.
type ssmClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMFetcher fetches parameters from AWS Systems Manager Parameter Store.
// Identifiers are parameter names or paths (e.g. "/prod/app/db_password").
type SSMFetcher struct {
	client ssmClient

	// withDecryption is forwarded as GetParameter's WithDecryption flag.
	// SecureString parameters are only readable in plaintext when it is set.
	withDecryption bool
}

// NewSSMFetcher creates an SSMFetcher around an SSM client.
func NewSSMFetcher(client ssmClient, withDecryption bool) *SSMFetcher {
	return &SSMFetcher{
		client:         client,
		withDecryption: withDecryption,
	}
}

// Fetch retrieves a single parameter value.
func (f *SSMFetcher) Fetch(ctx context.Context, id string) types.FetchOutcome {
	outcome, _ := f.FetchClassified(ctx, id)
	return outcome
}

// FetchClassified implements ClassifiedFetcher. Missing parameters and
// client-side rejections are not backend failures.
func (f *SSMFetcher) FetchClassified(ctx context.Context, id string) (types.FetchOutcome, error) {
	output, err := f.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(id),
		WithDecryption: aws.Bool(f.withDecryption),
	})
	if err != nil {
		return failedFetch(err)
	}

	if output == nil || output.Parameter == nil {
		return types.FetchFailed("parameter not found"), nil
	}
	if output.Parameter.Value == nil {
		return types.FetchFailed("parameter value not found"), nil
	}

	return types.Fetched(aws.ToString(output.Parameter.Value)), nil
}
