package lineimport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ggc/backend/internal/domain/shared"
)

// DefaultMaxLineBytes bounds the length of a single input line
const DefaultMaxLineBytes = 1 << 20

// Line is one non-blank physical line of input
type Line struct {
	Number int
	Text   string
}

// LineReader yields the non-blank lines of an input stream.
// A leading UTF-8 BOM and trailing carriage returns are removed.
type LineReader struct {
	scanner *bufio.Scanner
	line    int
	skipped int
}

// NewLineReader creates a line reader over r
func NewLineReader(r io.Reader, maxLineBytes int) (*LineReader, error) {
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}

	bufReader := bufio.NewReader(r)

	// UTF-8 BOM: 0xEF, 0xBB, 0xBF
	head, err := bufReader.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = bufReader.Discard(3)
	}

	scanner := bufio.NewScanner(bufReader)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLineBytes)), maxLineBytes)

	return &LineReader{scanner: scanner}, nil
}

// Next returns the next non-blank line, or io.EOF when the input is exhausted.
// Lines that are not valid UTF-8 or exceed the size limit produce a *LoadError.
func (lr *LineReader) Next() (Line, error) {
	for lr.scanner.Scan() {
		lr.line++
		text := strings.TrimSuffix(lr.scanner.Text(), "\r")

		if strings.TrimSpace(text) == "" {
			lr.skipped++
			continue
		}
		if !utf8.ValidString(text) {
			return Line{}, newLoadError(shared.CodeInvalidEncoding, "line is not valid UTF-8").
				at(lr.line, strings.ToValidUTF8(text, "�"))
		}
		return Line{Number: lr.line, Text: text}, nil
	}

	if err := lr.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			le := newLoadError(shared.CodeMalformedRecord, "line exceeds maximum length").at(lr.line+1, "")
			le.Err = err
			return Line{}, le
		}
		return Line{}, fmt.Errorf("failed to read line %d: %w", lr.line+1, err)
	}
	return Line{}, io.EOF
}

// LinesRead returns the number of physical lines consumed so far
func (lr *LineReader) LinesRead() int {
	return lr.line
}

// Skipped returns the number of blank lines skipped so far
func (lr *LineReader) Skipped() int {
	return lr.skipped
}
