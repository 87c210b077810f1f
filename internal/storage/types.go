package storage

// Store version. On mismatch the whole store (events, daily aggregates,
// meta) is wiped and recreated; there is no migration path for data.
const StoreVersion = 1

// Retention and capacity limits for the event log.
const (
	DefaultRetentionDays = 60
	MaxEvents            = 20000
	DedupeWindowMs       = 30000
)

// SeriesMax caps each rolling sample series.
const SeriesMax = 60

// Metric names for the rolling sample series.
const (
	MetricTemperature  = "temperature"
	MetricPolarization = "polarization"
)

// Probe is an engagement snapshot for a page visit. Energy is a
// log-compressed blend of the two counters, bounded to [0,1], produced
// by the capture side.
type Probe struct {
	ScrollCount int     `json:"scrollCount"`
	ClickCount  int     `json:"clickCount"`
	Energy      float64 `json:"energy"`
}

// TagEvent is one observation of a page visit's derived interests.
// Tags are normalized (trimmed, NFKC, casefolded), deduplicated, and
// sorted before the event is stored.
type TagEvent struct {
	Day          string   `json:"day"`          // YYYY-MM-DD, local
	CapturedAtMs int64    `json:"capturedAtMs"` // epoch milliseconds
	Domain       string   `json:"domain"`       // lowercase hostname
	URLHash      string   `json:"urlHash"`      // e.g. "sha256:<hex>"
	Tags         []string `json:"tags"`
	Probe        *Probe   `json:"probe,omitempty"`
}

// DailyAgg is the per-day rollup of the retained event set. It is always
// rebuilt wholesale from events on write, never patched incrementally.
type DailyAgg struct {
	Day        string         `json:"day"`
	EventCount int            `json:"eventCount"`
	UniqueTags int            `json:"uniqueTags"`
	TagFreq    map[string]int `json:"tagFreq"` // tag -> events containing it that day
}

// StoreMeta tracks the store's schema identity and write times.
type StoreMeta struct {
	Version       int
	CreatedAtMs   int64
	LastWriteAtMs int64
}

// Sample is one rolling-baseline observation: at most one per day.
type Sample struct {
	Day   string  `json:"day"`
	Value float64 `json:"value"`
}

// DomainCount pairs a domain with its event count.
type DomainCount struct {
	Domain string
	Count  int64
}

// Stats holds aggregate statistics about the store.
type Stats struct {
	TotalEvents  int64
	TotalDays    int64
	OldestDay    string
	NewestDay    string
	TopDomains   []DomainCount
	SeriesCounts map[string]int64
}
