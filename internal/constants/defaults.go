package constants

// DefaultVersion is the default version of the application
const DefaultVersion = "0.1.0-dev"

// DefaultBuildTime is the default build time when not provided at build time
const DefaultBuildTime = "unknown"

// DefaultGitCommit is the default git commit hash when not provided at build time
const DefaultGitCommit = "unknown"

// DefaultGoVersion is the default Go version when not provided at build time
const DefaultGoVersion = "unknown"

// DefaultEndpoint is the daemon endpoint used when neither config nor flags set one
const DefaultEndpoint = "tcp://127.0.0.1:10091"

// DefaultQueueName is the name of the queue every daemon starts with
const DefaultQueueName = "default"

// MaxQueueNameLength is the maximum queue name length in characters
const MaxQueueNameLength = 256

// Default timeouts of the client, in milliseconds.
const (
	DefaultConnectTimeoutMs = 5000
	DefaultReadTimeoutMs    = 30000
	DefaultWriteTimeoutMs   = 30000
	DefaultPollIntervalMs   = 100
)

// DefaultMetricsNamespace is the Prometheus namespace of client metrics
const DefaultMetricsNamespace = "jobqueue"
