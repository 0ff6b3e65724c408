package config

const (
	defaultLogDir         = "~/.local/share/calmatch/logs"
	defaultStateDir       = "~/.local/share/calmatch"
	defaultDiagnosticsDir = "~/.local/share/calmatch/diagnostics"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultExtractWorkers = 8
)

var defaultExtensions = []string{"tif", "tiff"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:         defaultLogDir,
			StateDir:       defaultStateDir,
			DiagnosticsDir: defaultDiagnosticsDir,
		},
		Matching: Matching{
			Extensions:     append([]string(nil), defaultExtensions...),
			ExtractWorkers: defaultExtractWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
