package records

import (
	"strings"
	"time"
)

// State represents the lifecycle of a preview record.
type State string

const (
	StateUploaded     State = "uploaded"
	StateAIAnalyzed   State = "ai_analyzed"
	StateUserReviewed State = "user_reviewed"
	StateEnriched     State = "enriched"
	// StateArchived is terminal. A preview never persists in this state; it
	// is deleted in the same transaction that creates the archive record.
	StateArchived State = "archived"
)

var stateOrder = []State{
	StateUploaded,
	StateAIAnalyzed,
	StateUserReviewed,
	StateEnriched,
	StateArchived,
}

var stateIndex = func() map[State]int {
	idx := make(map[State]int, len(stateOrder))
	for i, state := range stateOrder {
		idx[state] = i
	}
	return idx
}()

// AllStates returns the ordered list of lifecycle states.
func AllStates() []State {
	cp := make([]State, len(stateOrder))
	copy(cp, stateOrder)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateIndex[normalized]
	return normalized, ok
}

// Index returns the position of a state in the lifecycle, or -1 when unknown.
func (s State) Index() int {
	if i, ok := stateIndex[s]; ok {
		return i
	}
	return -1
}

// CanAdvance reports whether to is the state immediately following from.
// The lifecycle is strictly linear; skips and cycles are never valid.
func CanAdvance(from, to State) bool {
	fi, ti := from.Index(), to.Index()
	return fi >= 0 && ti >= 0 && ti == fi+1
}

// AtLeast reports whether the state has reached (or passed) the given state.
func (s State) AtLeast(other State) bool {
	si, oi := s.Index(), other.Index()
	return si >= 0 && oi >= 0 && si >= oi
}

// EnrichmentSource identifies which cascade step supplied enrichment data.
type EnrichmentSource string

const (
	EnrichmentNone    EnrichmentSource = "none"
	EnrichmentCache   EnrichmentSource = "cache"
	EnrichmentCatalog EnrichmentSource = "catalog"
	EnrichmentAI      EnrichmentSource = "ai"
)

// Fields holds the extracted display metadata for a record. Empty strings
// mean the field has not been populated; enrichment fills empty fields only.
type Fields struct {
	Artist        string
	Album         string
	Title         string
	Label         string
	Year          string
	CatalogNumber string
	Country       string
	Format        string
}

// Merge fills empty fields from other without touching populated ones.
// It reports whether any field changed.
func (f *Fields) Merge(other Fields) bool {
	changed := false
	fill := func(dst *string, src string) {
		if *dst == "" && strings.TrimSpace(src) != "" {
			*dst = strings.TrimSpace(src)
			changed = true
		}
	}
	fill(&f.Artist, other.Artist)
	fill(&f.Album, other.Album)
	fill(&f.Title, other.Title)
	fill(&f.Label, other.Label)
	fill(&f.Year, other.Year)
	fill(&f.CatalogNumber, other.CatalogNumber)
	fill(&f.Country, other.Country)
	fill(&f.Format, other.Format)
	return changed
}

// Override replaces fields with non-empty values from other, preferring other
// on conflict. Used when a higher-trust source supersedes a lower-trust one.
func (f *Fields) Override(other Fields) {
	set := func(dst *string, src string) {
		if strings.TrimSpace(src) != "" {
			*dst = strings.TrimSpace(src)
		}
	}
	set(&f.Artist, other.Artist)
	set(&f.Album, other.Album)
	set(&f.Title, other.Title)
	set(&f.Label, other.Label)
	set(&f.Year, other.Year)
	set(&f.CatalogNumber, other.CatalogNumber)
	set(&f.Country, other.Country)
	set(&f.Format, other.Format)
}

// HasIdentity reports whether the minimal identifying data for archiving is
// present (at least one of artist or album).
func (f Fields) HasIdentity() bool {
	return strings.TrimSpace(f.Artist) != "" || strings.TrimSpace(f.Album) != ""
}

// PreviewRecord is the mutable, pre-commit representation of an upload.
type PreviewRecord struct {
	PreviewID string
	OwnerID   string

	SourceFilePath     string
	CanonicalImagePath string

	Fields      Fields
	Confidence  float64
	OCRText     string
	RawAnalysis string

	AnalysisModel    string
	EstimatedCost    int
	AnalysisError    string
	EnrichmentSource EnrichmentSource

	State         State
	ErrorMessage  string
	LastHeartbeat *time.Time

	CreatedAt  time.Time
	UpdatedAt  time.Time
	AnalyzedAt *time.Time
	ReviewedAt *time.Time
	EnrichedAt *time.Time
}

// ArchiveRecord is the immutable, durable catalog entry.
type ArchiveRecord struct {
	RecordID  string
	PreviewID string
	OwnerID   string

	Fields     Fields
	Confidence float64

	AnalysisModel    string
	EnrichmentSource EnrichmentSource

	ArchivedAt time.Time
}

// Tombstone maps a consumed preview id to its archive record.
type Tombstone struct {
	PreviewID  string
	RecordID   string
	OwnerID    string
	ArchivedAt time.Time
}

// HealthSummary describes aggregated record counts per lifecycle state.
type HealthSummary struct {
	Previews   int
	Uploaded   int
	Analyzed   int
	Reviewed   int
	Enriched   int
	Archived   int
	Tombstones int
}
