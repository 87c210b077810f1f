package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:              "~/.config/tagpivot",
			SQLiteFile:        "tagpivot.db",
			SQLiteJournalMode: "wal",
		},
		Retention: RetentionConfig{
			Days:               60,
			MaxEvents:          20000,
			PruneIntervalHours: 24,
		},
		Capture: CaptureConfig{
			DedupeWindowMs:  30000,
			MaxTagsPerEvent: 18,
		},
		Analysis: AnalysisConfig{
			WindowCandidates:    []int{8, 13, 21, 30, 60},
			WindowMinTotal:      20,
			WindowMinUnique:     15,
			BridgeDays:          60,
			BridgeTopK:          10,
			BridgeMinCo:         2,
			BridgeTopM:          6,
			PoleSize:            8,
			PolarizationMinEvts: 80,
			DownsampleCap:       2500,
		},
		Daemon: DaemonConfig{
			Host:           "127.0.0.1",
			Port:           8742,
			AuthToken:      "",
			MaxRequestSize: 1 << 20,
			RatePerSecond:  20,
			RateBurst:      40,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
