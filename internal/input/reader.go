package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// ErrWordlistNotFound is returned when the wordlist path does not exist.
var ErrWordlistNotFound = errors.New("wordlist not found")

// maxLineSize bounds a single wordlist line.
const maxLineSize = 1024 * 1024

// Reader handles reading candidate passwords from a wordlist file or any io.Reader.
type Reader struct{}

// NewReader creates a new Reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadCandidatesFromFile reads candidates line by line from a specified file.
// A missing file yields an error wrapping ErrWordlistNotFound.
func (r *Reader) ReadCandidatesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrWordlistNotFound, filePath)
		}
		return nil, err
	}
	defer file.Close()

	return r.ReadCandidates(file)
}

// ReadCandidates keeps file order, drops whitespace-only lines and trims the rest.
// Lines starting with '#' are kept: they are valid passwords.
func (r *Reader) ReadCandidates(src io.Reader) ([]string, error) {
	var candidates []string
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		candidates = append(candidates, line)
	}
	return candidates, scanner.Err()
}
