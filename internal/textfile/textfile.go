// Package textfile loads user supplied practice text.
package textfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLineBytes bounds one line of input; minified sources can be long.
const maxLineBytes = 1 << 20

// ErrEmpty is returned when a file holds no typeable text.
var ErrEmpty = errors.New("text is empty")

// LoadText reads a practice text file and normalizes it with Normalize.
func LoadText(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open text file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only text file.
			_ = cerr
		}
	}()
	return Read(file)
}

// Read normalizes text from r.
func Read(r io.Reader) (string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	text := Normalize(strings.Join(lines, "\n"))
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}
