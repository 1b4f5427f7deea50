package domain

import "time"

// AdvisoryCacheEntry memoizes a classification result for a PSIRT advisory on
// one platform. The composite (AdvisoryID, Platform) key is mandatory: the
// same advisory classified for two platforms yields two independent entries.
type AdvisoryCacheEntry struct {
	AdvisoryID      string    `json:"advisory_id"`
	Platform        Platform  `json:"platform"`
	PredictedLabels []string  `json:"predicted_labels,omitempty"`
	Confidence      float64   `json:"confidence"`
	ConfigRegex     []string  `json:"config_regex,omitempty"`
	ShowCommands    []string  `json:"show_commands,omitempty"`
	CachedAt        time.Time `json:"cached_at"`
}
