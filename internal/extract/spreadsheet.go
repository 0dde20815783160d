package extract

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/footnote/backend/internal/model"
)

// Spreadsheet bounds, per §4.3.
const (
	maxSheetRows = 10_000
	maxSheetCols = 100
)

// Spreadsheet renders each sheet of content as one Markdown-table
// TextBlock (the whole sheet stays together rather than chunked block by
// block, to preserve row/column context), bounded at maxSheetRows /
// maxSheetCols. Grounded on the original's row/column truncation and
// header-row convention.
func Spreadsheet(content []byte) (Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return Document{}, fmt.Errorf("extract: open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	var blocks []TextBlock

	for sheetIndex, sheetName := range sheets {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		text := renderSheet(sheetName, rows)
		if strings.TrimSpace(text) == "" {
			continue
		}
		blocks = append(blocks, TextBlock{
			Text: text,
			Location: model.Location{
				Kind:       model.LocationSheet,
				SheetName:  sheetName,
				SheetIndex: sheetIndex,
			},
			HeadingContext: "Sheet: " + sheetName,
		})
	}

	return Document{Blocks: blocks}, nil
}

func renderSheet(sheetName string, rows [][]string) string {
	var lines []string
	lines = append(lines, "## "+sheetName)

	truncatedRows := len(rows) > maxSheetRows
	if truncatedRows {
		rows = rows[:maxSheetRows]
	}

	var data [][]string
	maxCols := 0
	for _, row := range rows {
		if len(row) > maxSheetCols {
			row = row[:maxSheetCols]
		}
		hasContent := false
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				hasContent = true
				break
			}
		}
		if !hasContent {
			continue
		}
		data = append(data, row)
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	if len(data) == 0 {
		return "## " + sheetName + "\n\n*Empty sheet*"
	}

	for i, row := range data {
		for len(row) < maxCols {
			row = append(row, "")
		}
		data[i] = row
	}

	lines = append(lines, formatMarkdownRow(data[0], true))
	for _, row := range data[1:] {
		lines = append(lines, formatMarkdownRow(row, false))
	}

	if truncatedRows {
		lines = append(lines, fmt.Sprintf("\n*Note: Showing first %s rows (truncated)*", strconv.Itoa(maxSheetRows)))
	}

	return strings.Join(lines, "\n")
}

func formatMarkdownRow(cells []string, header bool) string {
	row := "| " + strings.Join(cells, " | ") + " |"
	if !header {
		return row
	}
	separators := make([]string, len(cells))
	for i := range separators {
		separators[i] = "---"
	}
	return row + "\n| " + strings.Join(separators, " | ") + " |"
}
