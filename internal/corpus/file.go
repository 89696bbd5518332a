package corpus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// maxLineBytes bounds one JSON line, i.e. one page.
const maxLineBytes = 16 << 20

// FileLoader reads JSON lines, one Page object per line. Blank lines are
// skipped.
type FileLoader struct {
	Path    string
	Workers int
}

func (l *FileLoader) Load(ctx context.Context) ([]*Page, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	defer f.Close()
	pages, err := ReadJSONLines(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", l.Path, err)
	}
	if err := prepareAll(ctx, pages, l.Workers); err != nil {
		return nil, err
	}
	slog.Default().With("component", "corpus").Info("corpus file loaded",
		"path", l.Path,
		"pages", len(pages),
	)
	return Dedupe(pages), nil
}

func (l *FileLoader) Close() error { return nil }

// ReadJSONLines decodes unprepared pages from r.
func ReadJSONLines(r io.Reader) ([]*Page, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var pages []*Page
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var p Page
		if err := json.Unmarshal([]byte(text), &p); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		pages = append(pages, &p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", line+1, err)
	}
	return pages, nil
}
