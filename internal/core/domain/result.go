package domain

// VersionVerdict is the tri-state outcome of the version check.
type VersionVerdict string

const (
	VersionAffected    VersionVerdict = "affected"
	VersionNotAffected VersionVerdict = "not_affected"
	VersionUnknown     VersionVerdict = "unknown"
)

// OverallStatus is the final verdict of a device verification.
type OverallStatus string

const (
	StatusVulnerable          OverallStatus = "VULNERABLE"
	StatusNotVulnerable       OverallStatus = "NOT_VULNERABLE"
	StatusPotentiallyVuln     OverallStatus = "POTENTIALLY_VULNERABLE"
	StatusLikelyNotVulnerable OverallStatus = "LIKELY_NOT_VULNERABLE"
	StatusError               OverallStatus = "ERROR"
)

// ScanResult is the outcome of one bulk tiered scan. Computed per call and
// never persisted.
type ScanResult struct {
	ScanID        string   `json:"scan_id"`
	Platform      Platform `json:"platform"`
	DeviceVersion string   `json:"device_version"`
	HardwareModel string   `json:"hardware_model,omitempty"`
	Labels        []string `json:"labels,omitempty"`

	// Per-tier counters. VersionMatches is the Tier A survivor count,
	// HardwareFiltered / FeatureFiltered the survivor counts of Tiers B
	// and C, HardwareFilteredCount the number of records Tier B removed.
	VersionMatches        int `json:"version_matches"`
	HardwareFiltered      int `json:"hardware_filtered"`
	HardwareFilteredCount int `json:"hardware_filtered_count"`
	FeatureFiltered       int `json:"feature_filtered"`

	QueryTimeMs     int64                 `json:"query_time_ms"`
	Vulnerabilities []VulnerabilityRecord `json:"vulnerabilities"`
}

// VersionCheck is the version half of a verification result.
type VersionCheck struct {
	Affected         VersionVerdict `json:"affected"`
	Reason           string         `json:"reason"`
	MatchedVersions  []string       `json:"matched_versions,omitempty"`
	CheckedVersions  []string       `json:"checked_versions,omitempty"`
	DeviceVersion    string         `json:"device_version,omitempty"`
	NormalizedDevice *Version       `json:"normalized_device,omitempty"`
}

// FeatureCheck is the feature half of a verification result.
type FeatureCheck struct {
	Present []string `json:"present"`
	Absent  []string `json:"absent"`
	Reason  string   `json:"reason,omitempty"`
}

// CommandEvidence is the raw output of one show command collected as
// supporting evidence for a VULNERABLE verdict.
type CommandEvidence struct {
	Command string `json:"command"`
	Output  string `json:"output"`
}

// VerificationResult is the structured outcome of one live device
// verification. Callers always receive one, even on connection failure.
type VerificationResult struct {
	VerificationID string   `json:"verification_id"`
	AdvisoryID     string   `json:"advisory_id"`
	Platform       Platform `json:"platform"`
	Hostname       string   `json:"hostname,omitempty"`

	VersionCheck VersionCheck `json:"version_check"`
	FeatureCheck FeatureCheck `json:"feature_check"`

	OverallStatus OverallStatus     `json:"overall_status"`
	Reason        string            `json:"reason"`
	Evidence      []CommandEvidence `json:"evidence,omitempty"`
	DurationMs    int64             `json:"duration_ms"`
}

// Target addresses one device for live verification.
type Target struct {
	Host      string `json:"host"`
	Port      int    `json:"port,omitempty"`
	Transport string `json:"transport"` // "ssh", "telnet", "replay"
	Username  string `json:"username,omitempty"`
	Password  string `json:"-"`
}
