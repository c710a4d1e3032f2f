package compound

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lilyanlefevre/formula-corrector/internal/formula"
	"github.com/lilyanlefevre/formula-corrector/pkg/logger"
)

const minFields = 3

// LoadOptions controls how a compound dataset is read.
type LoadOptions struct {
	// Delimiter separates fields; defaults to ";".
	Delimiter string
	// Encoding names the input charset; defaults to UTF-8.
	Encoding string
	// NoHeader disables skipping the first row.
	NoHeader bool
}

// DroppedRow describes a row excluded from the loaded set.
type DroppedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
	Text   string `json:"text"`
}

// LoadReport summarises a load. Rows excludes the header.
type LoadReport struct {
	Rows    int          `json:"rows"`
	Loaded  int          `json:"loaded"`
	Dropped []DroppedRow `json:"dropped,omitempty"`
}

// LoadFile opens path and loads it with Load. On a file-level failure the
// returned slice is empty and err describes the cause.
func LoadFile(path string, opts LoadOptions) ([]Entry, LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return []Entry{}, LoadReport{}, fmt.Errorf("opening compound file %s: %w", path, err)
	}
	defer f.Close()
	return Load(f, opts)
}

// Load reads semicolon-delimited compound rows: id, m/z, formula. A decimal
// comma in the m/z column is accepted and quotes around the formula are
// stripped. Malformed rows are dropped and recorded in the report; no partial
// row is retained. A read error discards everything loaded so far.
func Load(r io.Reader, opts LoadOptions) ([]Entry, LoadReport, error) {
	log := logger.WithComponent("compound-loader")
	delim := opts.Delimiter
	if delim == "" {
		delim = ";"
	}

	decoded, err := NewDecoder(r, opts.Encoding)
	if err != nil {
		return []Entry{}, LoadReport{}, err
	}

	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var report LoadReport
	entries := make([]Entry, 0, 256)
	line := 0
	for scanner.Scan() {
		line++
		if line == 1 && !opts.NoHeader {
			continue
		}
		report.Rows++
		text := scanner.Text()
		entry, reason := parseRow(text, delim)
		if reason != "" {
			log.Debug("row dropped", "line", line, "reason", reason, "text", text)
			report.Dropped = append(report.Dropped, DroppedRow{Line: line, Reason: reason, Text: text})
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		log.Error("compound read failed", "line", line, "error", err)
		return []Entry{}, LoadReport{}, fmt.Errorf("reading compounds: %w", err)
	}

	report.Loaded = len(entries)
	log.Info("compounds loaded",
		"rows", report.Rows,
		"loaded", report.Loaded,
		"dropped", len(report.Dropped),
	)
	return entries, report, nil
}

// parseRow returns the entry for one data row, or a non-empty reason when the
// row must be dropped.
func parseRow(text, delim string) (Entry, string) {
	fields := strings.Split(text, delim)
	if len(fields) < minFields {
		return Entry{}, fmt.Sprintf("expected at least %d fields, got %d", minFields, len(fields))
	}
	mzText := strings.ReplaceAll(strings.TrimSpace(fields[1]), ",", ".")
	mz, err := strconv.ParseFloat(mzText, 64)
	if err != nil {
		return Entry{}, fmt.Sprintf("invalid m/z %q", fields[1])
	}
	return Entry{
		ID:              fields[0],
		MZ:              mz,
		OriginalFormula: formula.Parse(strings.Trim(fields[2], `"`)),
	}, ""
}
