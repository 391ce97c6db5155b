package diagnostics

import "time"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes pushed to the diagnostics socket.
const (
	CodeLCDInit     = "LCD.INIT"
	CodeGenerator   = "GEN.WRITE"
	CodeDisplay     = "PANEL.WRITE"
	CodeReset       = "PANEL.RESET"
	CodeDriver      = "DRIVER.FALLBACK"
	CodeTestRunning = "TEST.RUNNING"
	CodeTestDone    = "TEST.DONE"
	CodeTestUnknown = "TEST.UNKNOWN"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
	Time           time.Time      `json:"time"`
}

// Sink receives diagnostics as they are raised.
type Sink func(Diagnostic)

// Discard drops every diagnostic.
func Discard(Diagnostic) {}
