package config

// ConfigFileNames are the runtime configuration file names, in lookup order.
var ConfigFileNames = []string{"coludf.yaml", "coludf.yml"}

// Launch defaults. Workers default to GOMAXPROCS in the launcher.
const (
	DefaultBlockSize = 1024
	DefaultArenaSize = 4096
)

// Logging defaults
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
	DefaultColor     = "auto"
)
