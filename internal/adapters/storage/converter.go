package storage

import (
	"encoding/json"

	"github.com/netposture/netposture/internal/core/domain"
)

// recordModel is the GORM model for vulnerability records. Labels are stored
// JSON-encoded; a NULL hardware_model means "applies to all hardware" and is
// preserved as nil on the way out.
type recordModel struct {
	ID                  string `gorm:"primaryKey"`
	Platform            string `gorm:"index"`
	Severity            int
	Title               string
	AffectedVersionsRaw string
	HardwareModel       *string
	Labels              string
	VulnType            string `gorm:"index"`
}

func toModel(rec domain.VulnerabilityRecord) (recordModel, error) {
	labels, err := json.Marshal(rec.Labels)
	if err != nil {
		return recordModel{}, err
	}
	return recordModel{
		ID:                  rec.ID,
		Platform:            string(rec.Platform),
		Severity:            rec.Severity,
		Title:               rec.Title,
		AffectedVersionsRaw: rec.AffectedVersionsRaw,
		HardwareModel:       rec.HardwareModel,
		Labels:              string(labels),
		VulnType:            string(rec.VulnType),
	}, nil
}

func toDomain(m recordModel) (domain.VulnerabilityRecord, error) {
	var labels []string
	if m.Labels != "" {
		if err := json.Unmarshal([]byte(m.Labels), &labels); err != nil {
			return domain.VulnerabilityRecord{}, err
		}
	}
	return domain.VulnerabilityRecord{
		ID:                  m.ID,
		Platform:            domain.Platform(m.Platform),
		Severity:            m.Severity,
		Title:               m.Title,
		AffectedVersionsRaw: m.AffectedVersionsRaw,
		HardwareModel:       m.HardwareModel,
		Labels:              labels,
		VulnType:            domain.VulnType(m.VulnType),
	}, nil
}
