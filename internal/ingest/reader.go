// Package ingest reads scraped listings from JSONL files, one listing per
// line.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/flatscout/flatscout/internal/domain"
)

// Lines can carry long descriptions; 1 MiB covers anything a scraper emits.
const maxLineSize = 1 << 20

// LineError reports an unparseable or invalid line. Line numbers are
// 1-based and count blank lines.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// ReadFile parses a JSONL listing file.
func ReadFile(path string) ([]domain.Listing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open listings file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses JSONL listings from r. Blank lines are skipped; the first
// malformed or invalid line aborts the read with a LineError, so a bad
// import never half-populates the store.
func Read(r io.Reader) ([]domain.Listing, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var listings []domain.Listing
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var l domain.Listing
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			return nil, &LineError{Line: line, Err: fmt.Errorf("parse listing: %w", err)}
		}
		if err := validate(l); err != nil {
			return nil, &LineError{Line: line, Err: err}
		}
		listings = append(listings, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read listings: %w", err)
	}
	return listings, nil
}

func validate(l domain.Listing) error {
	switch {
	case l.ListingID == "":
		return fmt.Errorf("listing_id is required")
	case l.URL == "":
		return fmt.Errorf("url is required")
	case l.Title == "":
		return fmt.Errorf("title is required")
	case l.ScrapedAt.IsZero():
		return fmt.Errorf("scraped_at is required")
	}
	if l.Location != nil && !l.Location.Valid() {
		return fmt.Errorf("location out of range: lat=%v lon=%v", l.Location.Lat, l.Location.Lon)
	}
	return nil
}
