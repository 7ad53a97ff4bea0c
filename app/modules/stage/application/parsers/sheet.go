package parsers

import (
	"errors"
	"fmt"
	"strings"
)

// TimeSheet is a parsed time sheet. Cells are kept raw; parsing and
// validating times is the caller's job.
type TimeSheet struct {
	Segments []string
	Rows     []TimeRow
}

// TimeRow is one competitor's line. Line is 1-based in the source file.
// Blank cells are omitted from Times.
type TimeRow struct {
	Line         int
	CompetitorID string
	Times        map[string]string
}

var (
	ErrEmptySheet    = errors.New("time sheet is empty")
	ErrMissingHeader = errors.New("time sheet header must start with \"entry\" or \"competitor\"")
	ErrNoSegments    = errors.New("time sheet header has no segment columns")
)

// buildSheet interprets a grid of cells. The first non-empty row is the header:
// an identity column followed by one column per segment. lineOf maps a row
// index to its source line.
func buildSheet(rows [][]string, lineOf func(i int) int) (*TimeSheet, error) {
	headerIdx := -1
	for i, row := range rows {
		if !blankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrEmptySheet
	}

	header := rows[headerIdx]
	switch strings.ToLower(strings.TrimSpace(header[0])) {
	case "entry", "competitor":
	default:
		return nil, ErrMissingHeader
	}

	var segments []string
	seen := make(map[string]struct{})
	for _, cell := range header[1:] {
		name := strings.TrimSpace(cell)
		if name == "" {
			break
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate segment column %q", name)
		}
		seen[name] = struct{}{}
		segments = append(segments, name)
	}
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	sheet := &TimeSheet{Segments: segments}
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if blankRow(row) {
			continue
		}
		competitor := strings.TrimSpace(row[0])
		if competitor == "" {
			return nil, fmt.Errorf("line %d: missing competitor", lineOf(i))
		}

		times := make(map[string]string, len(segments))
		for j, segment := range segments {
			col := j + 1
			if col >= len(row) {
				break
			}
			if v := strings.TrimSpace(row[col]); v != "" {
				times[segment] = v
			}
		}
		sheet.Rows = append(sheet.Rows, TimeRow{Line: lineOf(i), CompetitorID: competitor, Times: times})
	}
	return sheet, nil
}

func rowNumber(i int) int { return i + 1 }

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
