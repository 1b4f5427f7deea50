package versions

import (
	"fmt"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/netposture/netposture/internal/core/domain"
)

// ProductDescriptor is the (platform, version string) pair extracted from one
// free-text affected-products entry. Computed per call, never stored.
type ProductDescriptor struct {
	Platform   domain.Platform
	RawVersion string
}

// ExtractProduct parses a free-text product description into a descriptor.
// Either field may be empty when the text carries no recognizable platform
// or version.
func ExtractProduct(productText string) ProductDescriptor {
	return ProductDescriptor{
		Platform:   ExtractPlatform(productText),
		RawVersion: ExtractVersionFromProduct(productText),
	}
}

// Matcher decides whether a device version is affected by an advisory's
// version ranges. Stateless and safe for unrestricted concurrent use.
type Matcher struct{}

// NewMatcher returns a Matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// IsAffected checks a device version against an advisory's affected-products
// entries. Only entries whose extracted platform equals devicePlatform are
// considered; a candidate matches when it shares the device's major.minor
// train. An unparsable device version fails closed to not-affected with an
// empty checked-versions list, which the verifier maps to UNKNOWN.
func (m *Matcher) IsAffected(deviceVersion string, devicePlatform domain.Platform, affectedProductNames []string) domain.VersionCheck {
	check := domain.VersionCheck{
		Affected:      domain.VersionNotAffected,
		DeviceVersion: deviceVersion,
	}

	device := Normalize(deviceVersion)
	if device == nil {
		check.Reason = fmt.Sprintf("device version %q could not be parsed", deviceVersion)
		return check
	}
	check.NormalizedDevice = device

	// Collect candidate ranges for this platform.
	var candidates []struct {
		raw     string
		version domain.Version
	}
	for _, product := range affectedProductNames {
		desc := ExtractProduct(product)
		if desc.Platform != devicePlatform || desc.RawVersion == "" {
			continue
		}
		normalized := Normalize(desc.RawVersion)
		if normalized == nil {
			continue
		}
		candidates = append(candidates, struct {
			raw     string
			version domain.Version
		}{desc.RawVersion, *normalized})
		check.CheckedVersions = append(check.CheckedVersions, desc.RawVersion)
	}

	if len(candidates) == 0 {
		check.Reason = fmt.Sprintf("no affected versions for platform %s", devicePlatform)
		return check
	}

	for _, cand := range candidates {
		if device.SameTrain(cand.version) {
			check.Affected = domain.VersionAffected
			check.MatchedVersions = append(check.MatchedVersions, cand.raw)
			check.Reason = fmt.Sprintf("device version %s is in affected train %s (range %q)",
				device, cand.version.Train(), cand.raw)
			return check
		}
	}

	check.Reason = fmt.Sprintf("device version %s matches none of the affected ranges: %s",
		device, strings.Join(check.CheckedVersions, ", "))
	return check
}

// IsFixed reports whether deviceVersion already carries the fix, i.e.
// deviceVersion >= fixedVersion. Any normalization failure returns false,
// failing closed toward "still exposed".
func (m *Matcher) IsFixed(deviceVersion, fixedVersion string) bool {
	device := Normalize(deviceVersion)
	fixed := Normalize(fixedVersion)
	if device == nil || fixed == nil {
		return false
	}

	dv, err := goversion.NewVersion(device.String())
	if err != nil {
		return false
	}
	constraint, err := goversion.NewConstraint(">= " + fixed.String())
	if err != nil {
		return false
	}
	return constraint.Check(dv)
}

// MatchesTrainRaw applies the train policy to a raw affected-versions blob:
// true when any version token in the blob shares the device's train. A nil
// device version matches nothing.
func (m *Matcher) MatchesTrainRaw(device *domain.Version, affectedVersionsRaw string) bool {
	if device == nil {
		return false
	}
	for _, token := range ExtractAllVersions(affectedVersionsRaw) {
		if cand := Normalize(token); cand != nil && device.SameTrain(*cand) {
			return true
		}
	}
	return false
}
