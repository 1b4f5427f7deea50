package versions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netposture/netposture/internal/core/domain"
)

func TestIsAffectedSameTrain(t *testing.T) {
	m := NewMatcher()

	check := m.IsAffected("17.03.05", domain.PlatformIOSXE,
		[]string{"Cisco IOS XE Software, Version 17.3.1"})

	assert.Equal(t, domain.VersionAffected, check.Affected)
	assert.Equal(t, []string{"17.3.1"}, check.MatchedVersions)
	assert.Contains(t, check.Reason, "17.3.1")
	require.NotNil(t, check.NormalizedDevice)
	assert.Equal(t, domain.Version{Major: 17, Minor: 3, Patch: 5}, *check.NormalizedDevice)
}

func TestIsAffectedDifferentTrain(t *testing.T) {
	m := NewMatcher()

	check := m.IsAffected("17.03.05", domain.PlatformIOSXE,
		[]string{"Cisco IOS XE Software, Version 16.12.4"})

	assert.Equal(t, domain.VersionNotAffected, check.Affected)
	assert.Empty(t, check.MatchedVersions)
	// The checked range must be enumerated so callers can distinguish
	// "ranges existed and did not match" from "no range data".
	assert.Equal(t, []string{"16.12.4"}, check.CheckedVersions)
	assert.Contains(t, check.Reason, "16.12.4")
}

func TestIsAffectedFirstMatchWins(t *testing.T) {
	m := NewMatcher()

	check := m.IsAffected("17.9.2", domain.PlatformIOSXE, []string{
		"Cisco IOS XE Software, Version 17.6.1",
		"Cisco IOS XE Software, Version 17.9.1",
		"Cisco IOS XE Software, Version 17.9.3",
	})

	assert.Equal(t, domain.VersionAffected, check.Affected)
	assert.Equal(t, []string{"17.9.1"}, check.MatchedVersions)
}

func TestIsAffectedPlatformFilter(t *testing.T) {
	m := NewMatcher()

	// The only candidate belongs to a different platform, so no usable
	// range data exists for this device.
	check := m.IsAffected("17.3.5", domain.PlatformIOSXE,
		[]string{"Cisco IOS XR Software Release 17.3.1"})

	assert.Equal(t, domain.VersionNotAffected, check.Affected)
	assert.Empty(t, check.CheckedVersions)
	assert.Contains(t, check.Reason, "no affected versions for platform IOS-XE")
}

func TestIsAffectedUnparsableDeviceVersion(t *testing.T) {
	m := NewMatcher()

	check := m.IsAffected("garbage", domain.PlatformIOSXE,
		[]string{"Cisco IOS XE Software, Version 17.3.1"})

	// Fails closed on the not-affected side with an empty checked list,
	// which the verifier maps to UNKNOWN.
	assert.Equal(t, domain.VersionNotAffected, check.Affected)
	assert.Empty(t, check.CheckedVersions)
	assert.Nil(t, check.NormalizedDevice)
	assert.Contains(t, check.Reason, "could not be parsed")
}

func TestIsAffectedNoProducts(t *testing.T) {
	m := NewMatcher()

	check := m.IsAffected("17.3.5", domain.PlatformIOSXE, nil)

	assert.Equal(t, domain.VersionNotAffected, check.Affected)
	assert.Empty(t, check.CheckedVersions)
}

func TestIsFixed(t *testing.T) {
	m := NewMatcher()

	tests := []struct {
		name   string
		device string
		fixed  string
		want   bool
	}{
		{"exactly the fix", "17.6.1", "17.6.1", true},
		{"above the fix", "17.6.3", "17.6.1", true},
		{"below the fix", "17.3.1", "17.6.1", false},
		{"suffix normalized", "16.12.4a", "16.12.4", true},
		{"unparsable device", "junk", "17.6.1", false},
		{"unparsable fix", "17.6.1", "junk", false},
		{"both empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.IsFixed(tt.device, tt.fixed))
		})
	}
}

func TestMatchesTrainRaw(t *testing.T) {
	m := NewMatcher()
	device := Normalize("17.10.1")
	require.NotNil(t, device)

	assert.True(t, m.MatchesTrainRaw(device, "17.10.1, 17.10.2"))
	assert.True(t, m.MatchesTrainRaw(device, "affects 17.10.3 and later trains"))
	assert.False(t, m.MatchesTrainRaw(device, "17.9.1, 17.6.4"))
	assert.False(t, m.MatchesTrainRaw(device, "no versions at all"))
	assert.False(t, m.MatchesTrainRaw(nil, "17.10.1"))
}

func TestExtractProduct(t *testing.T) {
	desc := ExtractProduct("Cisco IOS XE Software, Version 17.3.1")
	assert.Equal(t, domain.PlatformIOSXE, desc.Platform)
	assert.Equal(t, "17.3.1", desc.RawVersion)

	empty := ExtractProduct("nothing useful")
	assert.Empty(t, empty.Platform)
	assert.Empty(t, empty.RawVersion)
}
