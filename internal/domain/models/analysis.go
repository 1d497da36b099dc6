package models

import "time"

// AnalysisRecord is one persisted analysis, one JSON object per log line.
// Raw is the model's answer as received; Output is the corrected plan.
type AnalysisRecord struct {
	ID        string     `json:"id,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Provider  string     `json:"provider,omitempty"`
	Model     string     `json:"model,omitempty"`
	Raw       string     `json:"raw"`
	Output    *LLMOutput `json:"output,omitempty"`
	Issues    []string   `json:"errors"`
}
