package logging

// LogEntry represents a structured log record with fields relevant to
// evolution runs.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Evolution-specific fields
	Generation int   // Generation the entry belongs to, -1 when unknown
	Latency    int64 // Operation duration in milliseconds

	// General structured data
	Fields map[string]interface{}
}
