package batch

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxLineSize is the maximum size (in bytes) of a single text line.
const DefaultMaxLineSize = 1024 * 1024 // 1MB

const utf8BOM = "\ufeff"

// CSVMode selects how CSV rows are flattened into candidate lines.
type CSVMode int

const (
	// CSVCells treats every non-blank cell, row-major, as its own line.
	CSVCells CSVMode = iota
	// CSVMessage reads a header row and uses the "message" column, falling
	// back to the row's values joined by a space.
	CSVMessage
)

func (m CSVMode) String() string {
	if m == CSVMessage {
		return "message"
	}
	return "cells"
}

// ParseCSVMode maps the csv-input config value.
func ParseCSVMode(s string) (CSVMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cells":
		return CSVCells, nil
	case "message":
		return CSVMessage, nil
	default:
		return CSVCells, fmt.Errorf("invalid csv-input %q (want cells or message)", s)
	}
}

// ReadText reads newline-delimited text. Blank lines are dropped and
// invalid UTF-8 sequences are removed.
func ReadText(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), DefaultMaxLineSize)

	var lines []string
	first := true
	for scanner.Scan() {
		line := strings.ToValidUTF8(scanner.Text(), "")
		if first {
			line = strings.TrimPrefix(line, utf8BOM)
			first = false
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return lines, fmt.Errorf("batch: line exceeds %d bytes: %w", DefaultMaxLineSize, err)
		}
		return lines, fmt.Errorf("batch: read text: %w", err)
	}
	return lines, nil
}

// ReadCSV flattens CSV rows into candidate lines according to mode.
func ReadCSV(r io.Reader, mode CSVMode) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var lines []string
	messageCol := -1
	row := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return lines, fmt.Errorf("batch: read csv: %w", err)
		}
		if row == 0 && len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], utf8BOM)
		}
		row++

		switch mode {
		case CSVMessage:
			if row == 1 {
				messageCol = headerIndex(record, "message")
				continue
			}
			if line := messageCell(record, messageCol); line != "" {
				lines = append(lines, line)
			}
		default:
			for _, cell := range record {
				if cell = strings.TrimSpace(cell); cell != "" {
					lines = append(lines, cell)
				}
			}
		}
	}
	return lines, nil
}

func headerIndex(header []string, name string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return i
		}
	}
	return -1
}

func messageCell(record []string, col int) string {
	if col >= 0 && col < len(record) {
		if msg := strings.TrimSpace(record[col]); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(strings.Join(record, " "))
}

// ReadFile dispatches on extension: .csv goes through ReadCSV, .evtx
// through ReadEVTX, anything else is read as text.
func ReadFile(path string, mode CSVMode) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".evtx") {
		return ReadEVTX(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("batch: open %s: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadCSV(f, mode)
	}
	return ReadText(f)
}
