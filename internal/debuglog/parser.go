package debuglog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ListTraces returns summaries of all traces in dir, newest first.
// Files that cannot be parsed are skipped.
func ListTraces(dir string) ([]TraceSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var traces []TraceSummary
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jsonl" {
			continue
		}
		summary, err := parseTraceSummary(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		traces = append(traces, summary)
	}

	sort.Slice(traces, func(i, j int) bool {
		if !traces[i].StartTime.Equal(traces[j].StartTime) {
			return traces[i].StartTime.After(traces[j].StartTime)
		}
		return traces[i].RunID > traces[j].RunID
	})
	return traces, nil
}

// parseTraceSummary scans one trace file without keeping its entries.
func parseTraceSummary(path string) (TraceSummary, error) {
	trace, err := scanTrace(path, false)
	if err != nil {
		return TraceSummary{}, err
	}
	return trace.Summary, nil
}

// ParseTrace reads one trace file completely.
func ParseTrace(path string) (*Trace, error) {
	return scanTrace(path, true)
}

func scanTrace(path string, keepEntries bool) (*Trace, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	trace := &Trace{Summary: TraceSummary{
		RunID: strings.TrimSuffix(filepath.Base(path), ".jsonl"),
		Path:  path,
	}}
	s := &trace.Summary

	var lastTime time.Time
	sawEnd := false

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	for scanner.Scan() {
		entry, ok := decodeEntry(scanner.Bytes())
		if !ok {
			continue
		}
		if !entry.Timestamp.IsZero() {
			lastTime = entry.Timestamp
		}

		switch entry.Type {
		case "run_start":
			s.StartTime = entry.Timestamp
			s.Mode, _ = entry.Data["mode"].(string)
			s.Provider, _ = entry.Data["provider"].(string)
			s.Model, _ = entry.Data["model"].(string)
			s.Prompt, _ = entry.Data["prompt"].(string)

		case "chunk":
			s.Chunks++
			if total, ok := entry.Data["total"].(float64); ok {
				s.SourceBytes = int(total)
			}

		case "publication":
			s.Publications++

		case "run_end":
			sawEnd = true
			s.Status, _ = entry.Data["status"].(string)
			s.Error, _ = entry.Data["error"].(string)
			s.HasError = s.Error != ""
			if n, ok := entry.Data["publications"].(float64); ok {
				s.Publications = int(n)
			}
			if secs, ok := entry.Data["duration_secs"].(float64); ok {
				s.Duration = time.Duration(secs * float64(time.Second))
			}
		}

		if keepEntries {
			trace.Entries = append(trace.Entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if s.StartTime.IsZero() {
		return nil, &parseError{"no run_start entry"}
	}
	if !sawEnd {
		// The process died mid-run; reconstruct what we can.
		s.Truncated = true
		s.Status = "incomplete"
		if lastTime.After(s.StartTime) {
			s.Duration = lastTime.Sub(s.StartTime)
		}
	}
	return trace, nil
}

// decodeEntry turns one JSONL line into a TraceEntry. The common keys
// move to the struct; everything else stays in Data.
func decodeEntry(line []byte) (TraceEntry, bool) {
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return TraceEntry{}, false
	}

	var entry TraceEntry
	if ts, ok := raw["timestamp"].(string); ok {
		entry.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
	}
	entry.Type, _ = raw["type"].(string)
	if entry.Type == "" {
		return TraceEntry{}, false
	}
	delete(raw, "timestamp")
	delete(raw, "run_id")
	delete(raw, "type")
	entry.Data = raw
	return entry, true
}

// GetTraceByNumber returns the trace at the given 1-based index
// (1 = most recent), or nil when out of range.
func GetTraceByNumber(dir string, num int) (*TraceSummary, error) {
	traces, err := ListTraces(dir)
	if err != nil {
		return nil, err
	}
	if num < 1 || num > len(traces) {
		return nil, nil
	}
	return &traces[num-1], nil
}

// GetTraceByID returns the trace with the given run ID, or nil.
func GetTraceByID(dir, id string) (*TraceSummary, error) {
	traces, err := ListTraces(dir)
	if err != nil {
		return nil, err
	}
	for _, t := range traces {
		if t.RunID == id {
			return &t, nil
		}
	}
	return nil, nil
}

// ResolveTrace accepts either a listing number or a run ID.
func ResolveTrace(dir, identifier string) (*TraceSummary, error) {
	if num, err := parsePositiveInt(identifier); err == nil && num > 0 {
		return GetTraceByNumber(dir, num)
	}
	return GetTraceByID(dir, identifier)
}

func parsePositiveInt(s string) (int, error) {
	if s == "" {
		return 0, &parseError{"empty string"}
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, &parseError{"not a number"}
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

type parseError struct {
	msg string
}

func (e *parseError) Error() string {
	return e.msg
}
