// Package tabular extracts structured rows from spreadsheet documents.
//
// CSV input is parsed with the standard library reader in a lenient
// configuration. XLSX input is read directly from the OOXML archive:
// the shared-string table and the first worksheet are enough to recover
// the cell grid without a spreadsheet dependency.
//
// The first row is treated as the header. Every following row becomes a
// schema-keyed record, and the extracted text is a tab-separated
// rendition of the whole table so chunking and embedding work the same
// as for prose documents.
package tabular

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driven"
)

// MIMETypeXLSX is the OOXML spreadsheet MIME type.
const MIMETypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles CSV and XLSX content.
type Extractor struct{}

// New creates a tabular extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"text/csv",
		MIMETypeXLSX,
	}
}

// Extract parses the table and returns its schema, rows, and a text
// rendition of the full table.
func (e *Extractor) Extract(
	_ context.Context,
	content *domain.FileContent,
	file domain.SourceFile,
) (*driven.ExtractResult, error) {
	if content == nil {
		return nil, domain.ErrInvalidInput
	}

	var (
		grid [][]string
		err  error
	)
	if isXLSX(content.MIMEType) {
		grid, err = parseXLSX(content.Data)
	} else {
		grid, err = parseCSV(content.Data)
	}
	if err != nil {
		return nil, err
	}

	return buildResult(grid, file), nil
}

// isXLSX matches the XLSX MIME type, ignoring case and parameters.
func isXLSX(mimeType string) bool {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.EqualFold(strings.TrimSpace(mimeType), MIMETypeXLSX)
}

// buildResult converts a cell grid into schema, rows, and text.
func buildResult(grid [][]string, file domain.SourceFile) *driven.ExtractResult {
	if len(grid) == 0 {
		return &driven.ExtractResult{}
	}

	schema := headerNames(grid[0])

	rows := make([]domain.TabularRow, 0, len(grid)-1)
	for i, record := range grid[1:] {
		data := make(map[string]any, len(schema))
		for col, name := range schema {
			if col < len(record) {
				data[name] = cellValue(record[col])
			} else {
				data[name] = ""
			}
		}
		rows = append(rows, domain.TabularRow{
			FileID: file.FileID,
			Index:  i,
			Data:   data,
		})
	}

	var sb strings.Builder
	for i, record := range grid {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Join(record, "\t"))
	}

	return &driven.ExtractResult{
		Text:   sb.String(),
		Schema: schema,
		Rows:   rows,
	}
}

// headerNames cleans the header row. Blank headers get a positional
// name so row keys never collide on the empty string.
func headerNames(header []string) []string {
	names := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		names[i] = h
	}
	return names
}

// cellValue converts a raw cell into a typed value. Numeric cells
// become float64 so JSON round-trips match what spreadsheet tools emit.
func cellValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return trimmed
}

// parseCSV reads a CSV byte stream into a cell grid. The reader is
// lenient: ragged rows and stray quotes are common in exported data.
func parseCSV(data []byte) ([][]string, error) {
	// Strip a UTF-8 BOM; spreadsheet exports often carry one.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return records, nil
}

// sharedStringsXML represents xl/sharedStrings.xml.
type sharedStringsXML struct {
	Items []sharedString `xml:"si"`
}

type sharedString struct {
	Text string    `xml:"t"`
	Runs []richRun `xml:"r"`
}

type richRun struct {
	Text string `xml:"t"`
}

// value flattens a shared string, joining rich-text runs.
func (s sharedString) value() string {
	if len(s.Runs) == 0 {
		return s.Text
	}
	var sb strings.Builder
	for _, run := range s.Runs {
		sb.WriteString(run.Text)
	}
	return sb.String()
}

// worksheetXML represents the sheetData section of a worksheet.
type worksheetXML struct {
	SheetData struct {
		Rows []sheetRow `xml:"row"`
	} `xml:"sheetData"`
}

type sheetRow struct {
	Cells []sheetCell `xml:"c"`
}

type sheetCell struct {
	Ref    string `xml:"r,attr"`
	Type   string `xml:"t,attr"`
	Value  string `xml:"v"`
	Inline struct {
		Text string `xml:"t"`
	} `xml:"is"`
}

// parseXLSX opens the OOXML archive and reads the first worksheet into
// a cell grid.
func parseXLSX(data []byte) ([][]string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	shared, err := readSharedStrings(reader)
	if err != nil {
		return nil, err
	}

	sheetData, err := readFirstWorksheet(reader)
	if err != nil {
		return nil, err
	}

	var sheet worksheetXML
	if err := xml.Unmarshal(sheetData, &sheet); err != nil {
		return nil, domain.ErrInvalidInput
	}

	var grid [][]string
	for _, row := range sheet.SheetData.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			col := columnIndex(cell.Ref)
			for len(cells) < col {
				cells = append(cells, "")
			}
			cells = append(cells, resolveCell(cell, shared))
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

// readSharedStrings loads the shared-string table, which may be absent
// in workbooks that only hold numbers.
func readSharedStrings(reader *zip.Reader) ([]string, error) {
	content, err := readArchiveFile(reader, "xl/sharedStrings.xml")
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}

	var sst sharedStringsXML
	if err := xml.Unmarshal(content, &sst); err != nil {
		return nil, domain.ErrInvalidInput
	}

	values := make([]string, len(sst.Items))
	for i, item := range sst.Items {
		values[i] = item.value()
	}
	return values, nil
}

// readFirstWorksheet returns the XML of the first worksheet. Writers
// almost always name it sheet1.xml; when they do not, the first
// worksheet entry in the archive is used.
func readFirstWorksheet(reader *zip.Reader) ([]byte, error) {
	content, err := readArchiveFile(reader, "xl/worksheets/sheet1.xml")
	if err != nil {
		return nil, err
	}
	if content != nil {
		return content, nil
	}

	first := ""
	for _, file := range reader.File {
		if !strings.HasPrefix(file.Name, "xl/worksheets/") || !strings.HasSuffix(file.Name, ".xml") {
			continue
		}
		if first == "" || file.Name < first {
			first = file.Name
		}
	}
	if first == "" {
		return nil, errors.New("workbook has no worksheets")
	}

	content, err = readArchiveFile(reader, first)
	if err != nil {
		return nil, err
	}
	return content, nil
}

// readArchiveFile reads a named entry, returning nil when absent.
func readArchiveFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, domain.ErrInvalidInput
		}

		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		return content, nil
	}
	return nil, nil
}

// resolveCell converts a worksheet cell to its display value.
func resolveCell(cell sheetCell, shared []string) string {
	switch cell.Type {
	case "s":
		idx, err := strconv.Atoi(cell.Value)
		if err != nil || idx < 0 || idx >= len(shared) {
			return ""
		}
		return shared[idx]
	case "inlineStr":
		return cell.Inline.Text
	case "b":
		if cell.Value == "1" {
			return "TRUE"
		}
		return "FALSE"
	default:
		return cell.Value
	}
}

// columnIndex converts a cell reference like "C7" to a zero-based
// column number.
func columnIndex(ref string) int {
	col := 0
	for _, r := range ref {
		if r < 'A' || r > 'Z' {
			break
		}
		col = col*26 + int(r-'A') + 1
	}
	if col == 0 {
		return 0
	}
	return col - 1
}
