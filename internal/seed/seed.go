// Package seed reads seed addresses from files.
package seed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrSeedFileNotFound is returned when the seed file does not exist.
var ErrSeedFileNotFound = errors.New("seed file not found")

// maxLineSize bounds a single line. Long signed URLs exceed bufio's 64KB default.
const maxLineSize = 1024 * 1024

// LoadFile reads seeds from the file at path, one address per line.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // path is supplied by the user on purpose
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSeedFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	seeds, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	return seeds, nil
}

// Load reads seeds from r. Lines are trimmed and empty lines skipped; nothing
// else is validated, so a malformed line becomes an address that fails to fetch.
func Load(r io.Reader) ([]string, error) {
	seeds := make([]string, 0)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		seeds = append(seeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return seeds, nil
}
