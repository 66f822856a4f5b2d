package qick

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
)

//go:embed VERSION
var versionFile string

// Version is the library version in major.minor.PR form.
var Version = strings.TrimSpace(versionFile)

// ErrVersionMissing is returned by ReadVersion when the version file is absent.
var ErrVersionMissing = errors.New("version file missing")

// ReadVersion reads a version file containing only the version number.
func ReadVersion(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrVersionMissing, path)
		}
		return "", fmt.Errorf("read version: %w", err)
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", fmt.Errorf("read version: %s is empty", path)
	}
	return v, nil
}
