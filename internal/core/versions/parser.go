// Package versions normalizes noisy version strings and decides whether a
// device version falls in an advisory's affected range. Matching is
// train-level (major.minor), a deliberately coarse policy for the range data
// vendors actually publish.
package versions

import (
	"regexp"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/netposture/netposture/internal/core/domain"
)

// versionRe captures up to three digit groups: major[.minor[.patch]].
// Trailing letter suffixes ("17.9.3a") are stripped by capture, not rejected.
var versionRe = regexp.MustCompile(`(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// platformPatterns is tested in order; the first match wins. Specific names
// come before generic ones so "IOS XE" never falls through to a bare "IOS"
// or "XE" overlap.
var platformPatterns = []struct {
	re       *regexp.Regexp
	platform domain.Platform
}{
	{regexp.MustCompile(`(?i)\bIOS[ _-]?XR\b`), domain.PlatformIOSXR},
	{regexp.MustCompile(`(?i)\bIOS[ _-]?XE\b`), domain.PlatformIOSXE},
	{regexp.MustCompile(`(?i)\bNX[ _-]?OS\b|\bNexus\b`), domain.PlatformNXOS},
	{regexp.MustCompile(`(?i)\bFTD\b|\bFirepower\s+Threat\s+Defense\b`), domain.PlatformFTD},
	{regexp.MustCompile(`(?i)\bASA\b|\bAdaptive\s+Security\s+Appliance\b`), domain.PlatformASA},
}

// productVersionPatterns is tried in order against free-text product
// descriptions; each captures major.minor[.patch][suffix].
var productVersionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bVersion\s+(\d+\.\d+(?:\.\d+)?[a-z]?)`),
	regexp.MustCompile(`(?i)\bRelease\s+(\d+\.\d+(?:\.\d+)?[a-z]?)`),
	regexp.MustCompile(`(?i)\b(?:IOS[ _-]?X[ER]|NX[ _-]?OS|FTD|ASA)(?:\s+Software)?\s+(\d+\.\d+(?:\.\d+)?[a-z]?)`),
	regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?[a-z]?)\s*$`),
}

// Normalize extracts a comparable Version from a raw string. Missing minor
// and patch groups default to 0; non-digit suffixes are ignored. Returns nil
// for empty input or input without any digit.
func Normalize(raw string) *domain.Version {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	m := versionRe.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}

	v := &domain.Version{}
	v.Major, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		v.Minor, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		v.Patch, _ = strconv.Atoi(m[3])
	}

	// Round-trip the canonical form through go-version so segment
	// semantics stay aligned with the comparison side.
	if _, err := goversion.NewVersion(v.String()); err != nil {
		return nil
	}
	return v
}

// Compare orders two normalized versions lexicographically by
// (major, minor, patch). Returns -1, 0 or 1.
func Compare(a, b domain.Version) int {
	av, errA := goversion.NewVersion(a.String())
	bv, errB := goversion.NewVersion(b.String())
	if errA != nil || errB != nil {
		// Normalized versions always render canonically; fall back to
		// plain tuple order if that ever stops holding.
		return compareTuples(a, b)
	}
	return av.Compare(bv)
}

func compareTuples(a, b domain.Version) int {
	pairs := [3][2]int{{a.Major, b.Major}, {a.Minor, b.Minor}, {a.Patch, b.Patch}}
	for _, p := range pairs {
		if p[0] < p[1] {
			return -1
		}
		if p[0] > p[1] {
			return 1
		}
	}
	return 0
}

// ExtractPlatform maps a free-text product description to a platform
// identifier. Returns "" when no platform name is recognized.
func ExtractPlatform(productText string) domain.Platform {
	for _, entry := range platformPatterns {
		if entry.re.MatchString(productText) {
			return entry.platform
		}
	}
	return ""
}

// ExtractVersionFromProduct pulls the version substring out of a free-text
// product description. Tries "Version X", "Release X", "<platform>
// [Software] X", then a trailing-version fallback; first hit wins. Returns
// "" when nothing matches.
func ExtractVersionFromProduct(productText string) string {
	productText = strings.TrimSpace(productText)
	if productText == "" {
		return ""
	}
	for _, re := range productVersionPatterns {
		if m := re.FindStringSubmatch(productText); m != nil {
			return m[1]
		}
	}
	return ""
}

// ExtractAllVersions returns every version-looking token in a raw
// affected-versions blob, in order of appearance. Used by the bulk scanner's
// raw-text train matching.
var versionTokenRe = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?[a-z]?`)

func ExtractAllVersions(raw string) []string {
	return versionTokenRe.FindAllString(raw, -1)
}
