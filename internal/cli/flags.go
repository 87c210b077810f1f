package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// AddCommand — record a tag event for a visited URL.
type AddCommand struct {
	URL     string   `long:"url" description:"Visited URL (required)"`
	Tags    []string `long:"tag" description:"Interest tag (repeatable, required)"`
	At      string   `long:"at" description:"Capture time as RFC3339 (default now)"`
	Scrolls int      `long:"scrolls" description:"Scroll count from the page probe"`
	Clicks  int      `long:"clicks" description:"Click count from the page probe"`

	globals *GlobalFlags
	version string
}

// ReportCommand — run the full analysis pipeline and print the reading.
type ReportCommand struct {
	Tags   []string `long:"tag" description:"Seed tag for bridge/counterpoint discovery (repeatable)"`
	EndDay string   `long:"end-day" description:"Analysis end day as YYYY-MM-DD (default today)"`
	Debug  bool     `long:"debug" description:"Include raw counts behind each metric"`

	globals *GlobalFlags
	version string
}

// StatusCommand — show store health, statistics, and configuration summary.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// ServeCommand — start the local ingest daemon.
type ServeCommand struct {
	Port     int    `long:"port" description:"Override daemon port"`
	LogLevel string `long:"log-level" description:"Override log level"`

	globals *GlobalFlags
	version string
}

// PruneCommand — apply retention pruning to remove old events.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 30d)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
	version string
}

// PurgeCommand — delete ALL stored data with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
}
