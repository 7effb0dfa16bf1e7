package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricSecretsRequested = "SecretsRequested"
	MetricSecretsFetched   = "SecretsFetched"
	MetricSecretsFailed    = "SecretsFailed"
	MetricLoadDuration     = "LoadDuration"

	// Dimension Keys
	DimBackend = "Backend"

	// Backend dimension values
	BackendSSM            = "ssm"
	BackendSecretsManager = "secretsmanager"
)
