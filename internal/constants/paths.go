package constants

// DefaultEnvPath is the default path to the .env file
const DefaultEnvPath = "./.env"

// DefaultConfigPath is the default path to the config.toml file
const DefaultConfigPath = "~/.jobqueue/config.toml"

// EnvEndpoint overrides client.endpoint from the config file
const EnvEndpoint = "JOBQUEUE_ENDPOINT"

// EnvConfigPath overrides the default config path
const EnvConfigPath = "JOBQUEUE_CONFIG"

// DefaultStateDir is the directory for runtime files such as the simulator PID file
const DefaultStateDir = "~/.jobqueue"
