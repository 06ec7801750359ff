package filehash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestCalculate(t *testing.T) {
	path := writeTemp(t, []byte("hello world"))

	digest, err := Calculate(path)
	require.NoError(t, err)
	require.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", digest)
}

func TestCalculateDeterministic(t *testing.T) {
	path := writeTemp(t, []byte("same bytes"))

	first, err := Calculate(path)
	require.NoError(t, err)
	second, err := Calculate(path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCalculateMissingFile(t *testing.T) {
	_, err := Calculate(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	path := writeTemp(t, []byte("hello world"))

	require.True(t, Verify(path, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"))
	// expected digests may arrive uppercased
	require.True(t, Verify(path, "B94D27B9934D3E08A52E52D7DA7DABFAC484EFE37A5380EE9088F7ACE2EFCDE9"))
	require.False(t, Verify(path, "deadbeef"))
}

func TestVerifyDetectsByteFlip(t *testing.T) {
	content := []byte("hello world")
	path := writeTemp(t, content)
	digest, err := Calculate(path)
	require.NoError(t, err)

	content[0] ^= 0xff
	require.NoError(t, os.WriteFile(path, content, 0o644))
	require.False(t, Verify(path, digest))
}
