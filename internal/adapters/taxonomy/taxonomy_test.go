package taxonomy

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netposture/netposture/internal/core/domain"
)

const catalog = `{
	"IOS-XE": [
		{
			"label": "MGMT_SSH_HTTP",
			"config_regex": ["ip\\s+ssh", "ip\\s+http\\s+server"],
			"show_cmds": ["show ip ssh", "show ip http server status"]
		},
		{
			"label": "ROUTING_BGP",
			"config_regex": ["router\\s+bgp\\s+\\d+", "[broken"],
			"show_cmds": ["show ip bgp summary"]
		}
	],
	"ASA": [
		{
			"label": "VPN_ANYCONNECT",
			"config_regex": ["webvpn"],
			"show_cmds": ["show vpn-sessiondb"]
		}
	],
	"PIX": [
		{"label": "LEGACY", "config_regex": ["fixup"], "show_cmds": []}
	]
}`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taxonomy.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	provider, err := LoadFile(writeCatalog(t, catalog), logger)
	require.NoError(t, err)

	iosxe, err := provider.LabelsFor(domain.PlatformIOSXE)
	require.NoError(t, err)
	require.Len(t, iosxe, 2)
	assert.Equal(t, "MGMT_SSH_HTTP", iosxe[0].Label)
	assert.Len(t, iosxe[0].ConfigRegex, 2)

	// The malformed BGP pattern is dropped at load time; the label and
	// its valid pattern survive.
	assert.Equal(t, "ROUTING_BGP", iosxe[1].Label)
	assert.Equal(t, []string{`router\s+bgp\s+\d+`}, iosxe[1].ConfigRegex)
	assert.Contains(t, buf.String(), "malformed taxonomy pattern")

	// Unknown platforms are skipped entirely.
	assert.Contains(t, buf.String(), "unknown platform")

	asa, err := provider.LabelsFor(domain.PlatformASA)
	require.NoError(t, err)
	require.Len(t, asa, 1)
}

func TestLabelsForUncatalogedPlatform(t *testing.T) {
	provider, err := LoadFile(writeCatalog(t, catalog), nil)
	require.NoError(t, err)

	labels, err := provider.LabelsFor(domain.PlatformNXOS)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestLoadFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"), nil)
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := LoadFile(writeCatalog(t, "{not json"), nil)
		assert.Error(t, err)
	})
}
