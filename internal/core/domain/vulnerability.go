package domain

// VulnType distinguishes internal bug tracking records from vendor-published
// PSIRT advisories. Bulk scans only consider bugs; PSIRTs go through the
// live verification path.
type VulnType string

const (
	VulnTypeBug   VulnType = "bug"
	VulnTypePSIRT VulnType = "psirt"
)

// Severity levels. 1 is the most severe.
const (
	SeverityCritical = 1
	SeverityHigh     = 2
	SeverityMedium   = 3
	SeverityLow      = 4
)

// VulnerabilityRecord is one row of the read-only vulnerability store.
type VulnerabilityRecord struct {
	ID       string   `json:"id"`
	Platform Platform `json:"platform"`
	Severity int      `json:"severity"` // 1..4, 1 = Critical
	Title    string   `json:"title,omitempty"`

	// AffectedVersionsRaw is the advisory's affected-versions text as
	// published, e.g. "17.3.1, 17.3.2 and 17.3.3". Matching tokenizes it;
	// it is never parsed into exact ranges.
	AffectedVersionsRaw string `json:"affected_versions_raw"`

	// HardwareModel is nil for software-only vulnerabilities that apply to
	// every hardware SKU. A nil model must survive any hardware filter.
	HardwareModel *string `json:"hardware_model,omitempty"`

	// Labels are taxonomy labels tying the vulnerability to detectable
	// device features. An empty set means "feature unknown" and is kept
	// conservatively by the feature filter.
	Labels []string `json:"labels,omitempty"`

	VulnType VulnType `json:"vuln_type"`
}

// AppliesToHardware reports whether the record applies to the given hardware
// model. Generic records (nil model) apply to everything.
func (r VulnerabilityRecord) AppliesToHardware(model string) bool {
	return r.HardwareModel == nil || *r.HardwareModel == model
}

// MatchesAnyLabel reports whether the record shares at least one taxonomy
// label with the given set. Records without labels match conservatively.
func (r VulnerabilityRecord) MatchesAnyLabel(labels []string) bool {
	if len(r.Labels) == 0 {
		return true
	}
	for _, want := range labels {
		for _, have := range r.Labels {
			if want == have {
				return true
			}
		}
	}
	return false
}
