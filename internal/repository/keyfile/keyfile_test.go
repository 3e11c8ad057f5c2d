package keyfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeyFile(t *testing.T, records ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mtpz-data")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(records, "\n")+"\n"), 0o600))
	return path
}

func validRecords() []string {
	return []string{
		"10001",
		"00112233445566778899aabbccddeeff",
		strings.Repeat("ab", 128),
		strings.Repeat("cd", 128),
		strings.Repeat("a5", 0x275),
	}
}

func TestLoad(t *testing.T) {
	path := writeKeyFile(t, validRecords()...)

	km, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10001", km.PublicExponent)
	assert.Equal(t, []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}, km.EncryptionKey)
	assert.Equal(t, strings.Repeat("ab", 128), km.Modulus)
	assert.Equal(t, strings.Repeat("cd", 128), km.PrivateExponent)
	assert.Equal(t, bytes.Repeat([]byte{0xa5}, 0x275), km.Certificates)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrProvisioning)
}

func TestLoadTruncatedFile(t *testing.T) {
	for n := 0; n < 5; n++ {
		path := writeKeyFile(t, validRecords()[:n]...)
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrProvisioning, "%d records", n)
	}
}

func TestLoadBadHex(t *testing.T) {
	t.Run("encryption key", func(t *testing.T) {
		records := validRecords()
		records[1] = "not hex at all"
		_, err := Load(writeKeyFile(t, records...))
		assert.ErrorIs(t, err, ErrProvisioning)
	})

	t.Run("certificates", func(t *testing.T) {
		records := validRecords()
		records[4] = "xyz"
		_, err := Load(writeKeyFile(t, records...))
		assert.ErrorIs(t, err, ErrProvisioning)
	})
}

func TestLoadRejectsInvalidMaterial(t *testing.T) {
	records := validRecords()
	records[1] = "0011223344" // 5-byte encryption key
	_, err := Load(writeKeyFile(t, records...))
	assert.ErrorIs(t, err, ErrProvisioning)
}
