package domain

// FeatureLabel maps a taxonomy label to the configuration probes and show
// commands that can detect the feature on a live device. Supplied per
// platform by the taxonomy collaborator; read-only to this engine.
type FeatureLabel struct {
	Label       string   `json:"label"`
	ConfigRegex []string `json:"config_regex"`
	ShowCmds    []string `json:"show_cmds"`
}

// PSIRTAdvisory describes one vendor advisory handed to the verifier with its
// taxonomy labels, config probes and show commands already computed.
type PSIRTAdvisory struct {
	AdvisoryID     string   `json:"advisory_id"`
	Platform       Platform `json:"platform"`
	Labels         []string `json:"labels,omitempty"`
	ConfigPatterns []string `json:"config_patterns,omitempty"`
	ShowCommands   []string `json:"show_commands,omitempty"`

	// ProductNames are the advisory's free-text "affected products"
	// entries, e.g. "Cisco IOS XE Software, Version 17.3.1".
	ProductNames []string `json:"product_names,omitempty"`
}
