package debuglog

import "time"

// TraceSummary describes one trace file without its entries, enough
// for the listing view.
type TraceSummary struct {
	RunID        string
	Path         string
	StartTime    time.Time
	Mode         string
	Provider     string
	Model        string
	Prompt       string
	Status       string
	Error        string
	Chunks       int
	SourceBytes  int
	Publications int
	Duration     time.Duration
	HasError     bool
	Truncated    bool // file ends without a run_end entry
}

// Trace is one fully parsed run trace.
type Trace struct {
	Summary TraceSummary
	Entries []TraceEntry
}

// TraceEntry is one decoded JSONL line. Fields beyond the common
// timestamp/type pair stay in Data, keyed as written.
type TraceEntry struct {
	Timestamp time.Time
	Type      string
	Data      map[string]any
}
