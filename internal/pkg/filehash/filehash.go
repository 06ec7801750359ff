package filehash

import (
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/minio/sha256-simd"
)

// Calculate streams the file through SHA-256 without loading it whole.
func Calculate(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Verify recomputes the file digest and compares it against the expected
// hex digest. Any read error counts as a mismatch.
func Verify(filePath, expected string) bool {
	actual, err := Calculate(filePath)
	if err != nil {
		return false
	}
	return actual == strings.ToLower(expected)
}
