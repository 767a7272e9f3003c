package dm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
local_name: gopher
min_name_len: 12
inq_tx_power: -4
flags: "06"
manufacturer_data: "4c 00 02 15"
custom_uuids:
  - uuid: 00112233-4455-6677-8899-aabbccddeeff
    handle: 1
  - uuid: "00000000-2222-2222-3333-555555555559"
    handle: 2
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(testConfig))
	require.NoError(t, err)

	assert.Equal(t, "gopher", cfg.LocalName)
	assert.Equal(t, 12, cfg.MinNameLen)
	require.NotNil(t, cfg.InqTxPower)
	assert.Equal(t, int8(-4), *cfg.InqTxPower)
	assert.Equal(t, HexBytes{0x06}, cfg.Flags)
	assert.Equal(t, HexBytes{0x4c, 0x00, 0x02, 0x15}, cfg.ManufacturerData)

	rr, err := cfg.Registrations()
	require.NoError(t, err)
	assert.Equal(t, []CustomUUID{{uuid1, 1}, {uuid2, 2}}, rr)
}

func TestParseConfigInvalid(t *testing.T) {
	cases := []string{
		"local_name: [",
		"unknown_key: 1",
		"min_name_len: -1",
		`manufacturer_data: "zz"`,
		`manufacturer_data: "4c"`,
		"custom_uuids:\n  - uuid: nope\n    handle: 1\n",
		"custom_uuids:\n  - uuid: 00112233-4455-6677-8899-aabbccddeeff\n",
		"custom_uuids:\n  - uuid: 00000000-0000-0000-0000-000000000000\n    handle: 1\n",
	}
	for _, s := range cases {
		if _, err := ParseConfig([]byte(s)); err == nil {
			t.Errorf("ParseConfig(%q): got nil error", s)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eir.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "gopher", cfg.LocalName)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
