package tabular

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driven"
)

// createTestXLSX creates a minimal valid XLSX file in memory.
func createTestXLSX(sharedStringsXML, worksheetXML string) []byte {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	// Add [Content_Types].xml (required for a valid package)
	contentTypes, _ := w.Create("[Content_Types].xml")
	contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))

	if sharedStringsXML != "" {
		sst, _ := w.Create("xl/sharedStrings.xml")
		sst.Write([]byte(sharedStringsXML))
	}

	if worksheetXML != "" {
		sheet, _ := w.Create("xl/worksheets/sheet1.xml")
		sheet.Write([]byte(worksheetXML))
	}

	w.Close()
	return buf.Bytes()
}

func TestNew(t *testing.T) {
	extractor := New()
	require.NotNil(t, extractor)
	assert.IsType(t, &Extractor{}, extractor)
}

func TestSupportedMIMETypes(t *testing.T) {
	extractor := New()
	mimeTypes := extractor.SupportedMIMETypes()

	require.NotEmpty(t, mimeTypes)
	assert.Contains(t, mimeTypes, "text/csv")
	assert.Contains(t, mimeTypes, MIMETypeXLSX)
	assert.Len(t, mimeTypes, 2)
}

func TestExtract_NilContent(t *testing.T) {
	extractor := New()

	result, err := extractor.Extract(context.Background(), nil, domain.SourceFile{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestExtract_CSV(t *testing.T) {
	extractor := New()

	content := &domain.FileContent{
		Data:     []byte("name,price,stock\nwidget,9.99,12\ngadget,24.50,3\n"),
		MIMEType: "text/csv",
	}
	file := domain.SourceFile{FileID: "file-1", Name: "inventory.csv"}

	result, err := extractor.Extract(context.Background(), content, file)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, []string{"name", "price", "stock"}, result.Schema)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, "file-1", result.Rows[0].FileID)
	assert.Equal(t, 0, result.Rows[0].Index)
	assert.Equal(t, "widget", result.Rows[0].Data["name"])
	assert.Equal(t, 9.99, result.Rows[0].Data["price"])
	assert.Equal(t, float64(12), result.Rows[0].Data["stock"])
	assert.Equal(t, 1, result.Rows[1].Index)
	assert.Equal(t, "gadget", result.Rows[1].Data["name"])

	assert.Contains(t, result.Text, "name\tprice\tstock")
	assert.Contains(t, result.Text, "widget\t9.99\t12")
}

func TestExtract_CSV_WithBOM(t *testing.T) {
	extractor := New()

	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("id,label\n1,alpha\n")...)
	content := &domain.FileContent{Data: data, MIMEType: "text/csv; charset=utf-8"}

	result, err := extractor.Extract(context.Background(), content, domain.SourceFile{FileID: "f"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "label"}, result.Schema)
}

func TestExtract_CSV_RaggedRows(t *testing.T) {
	extractor := New()

	content := &domain.FileContent{
		Data:     []byte("a,b,c\n1,2\n3,4,5,6\n"),
		MIMEType: "text/csv",
	}

	result, err := extractor.Extract(context.Background(), content, domain.SourceFile{FileID: "f"})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	// Short rows pad with empty strings; extra cells are dropped.
	assert.Equal(t, "", result.Rows[0].Data["c"])
	assert.Equal(t, float64(5), result.Rows[1].Data["c"])
}

func TestExtract_CSV_BlankHeaders(t *testing.T) {
	extractor := New()

	content := &domain.FileContent{
		Data:     []byte("name,,\nwidget,1,2\n"),
		MIMEType: "text/csv",
	}

	result, err := extractor.Extract(context.Background(), content, domain.SourceFile{FileID: "f"})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "column_2", "column_3"}, result.Schema)
	assert.Equal(t, float64(1), result.Rows[0].Data["column_2"])
}

func TestExtract_CSV_HeaderOnly(t *testing.T) {
	extractor := New()

	content := &domain.FileContent{
		Data:     []byte("name,price\n"),
		MIMEType: "text/csv",
	}

	result, err := extractor.Extract(context.Background(), content, domain.SourceFile{})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "price"}, result.Schema)
	assert.Empty(t, result.Rows)
}

func TestExtract_CSV_Empty(t *testing.T) {
	extractor := New()

	result, err := extractor.Extract(context.Background(), &domain.FileContent{MIMEType: "text/csv"}, domain.SourceFile{})
	require.NoError(t, err)
	assert.Empty(t, result.Schema)
	assert.Empty(t, result.Rows)
	assert.Empty(t, result.Text)
}

func TestExtract_XLSX(t *testing.T) {
	extractor := New()

	sstXML := `<?xml version="1.0" encoding="UTF-8"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<si><t>name</t></si>
<si><t>price</t></si>
<si><t>widget</t></si>
</sst>`

	sheetXML := `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
<row r="2"><c r="A2" t="s"><v>2</v></c><c r="B2"><v>9.99</v></c></row>
</sheetData>
</worksheet>`

	content := &domain.FileContent{
		Data:     createTestXLSX(sstXML, sheetXML),
		MIMEType: MIMETypeXLSX,
	}
	file := domain.SourceFile{FileID: "file-2", Name: "catalog.xlsx"}

	result, err := extractor.Extract(context.Background(), content, file)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, []string{"name", "price"}, result.Schema)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "file-2", result.Rows[0].FileID)
	assert.Equal(t, "widget", result.Rows[0].Data["name"])
	assert.Equal(t, 9.99, result.Rows[0].Data["price"])
	assert.Contains(t, result.Text, "widget\t9.99")
}

func TestExtract_XLSX_SparseCells(t *testing.T) {
	extractor := New()

	// Row 2 skips column B entirely; the gap must appear as an empty cell.
	sheetXML := `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<sheetData>
<row r="1"><c r="A1"><v>1</v></c><c r="B1"><v>2</v></c><c r="C1"><v>3</v></c></row>
<row r="2"><c r="A2"><v>4</v></c><c r="C2"><v>6</v></c></row>
</sheetData>
</worksheet>`

	content := &domain.FileContent{
		Data:     createTestXLSX("", sheetXML),
		MIMEType: MIMETypeXLSX,
	}

	result, err := extractor.Extract(context.Background(), content, domain.SourceFile{FileID: "f"})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "", result.Rows[0].Data["2"])
	assert.Equal(t, float64(6), result.Rows[0].Data["3"])
}

func TestExtract_XLSX_InlineStrings(t *testing.T) {
	extractor := New()

	sheetXML := `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<sheetData>
<row r="1"><c r="A1" t="inlineStr"><is><t>label</t></is></c></row>
<row r="2"><c r="A2" t="inlineStr"><is><t>hello</t></is></c></row>
</sheetData>
</worksheet>`

	content := &domain.FileContent{
		Data:     createTestXLSX("", sheetXML),
		MIMEType: MIMETypeXLSX,
	}

	result, err := extractor.Extract(context.Background(), content, domain.SourceFile{FileID: "f"})
	require.NoError(t, err)
	assert.Equal(t, []string{"label"}, result.Schema)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "hello", result.Rows[0].Data["label"])
}

func TestExtract_XLSX_NotAZip(t *testing.T) {
	extractor := New()

	content := &domain.FileContent{
		Data:     []byte("definitely not a zip archive"),
		MIMEType: MIMETypeXLSX,
	}

	result, err := extractor.Extract(context.Background(), content, domain.SourceFile{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestExtract_XLSX_NoWorksheets(t *testing.T) {
	extractor := New()

	content := &domain.FileContent{
		Data:     createTestXLSX("", ""),
		MIMEType: MIMETypeXLSX,
	}

	result, err := extractor.Extract(context.Background(), content, domain.SourceFile{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no worksheets")
	assert.Nil(t, result)
}

func TestSharedString_RichTextRuns(t *testing.T) {
	s := sharedString{
		Runs: []richRun{{Text: "Hello "}, {Text: "World"}},
	}
	assert.Equal(t, "Hello World", s.value())
}

func TestColumnIndex(t *testing.T) {
	tests := []struct {
		ref      string
		expected int
	}{
		{"A1", 0},
		{"B2", 1},
		{"Z10", 25},
		{"AA1", 26},
		{"AB3", 27},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.expected, columnIndex(tt.ref))
		})
	}
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, 42.5, cellValue("42.5"))
	assert.Equal(t, float64(7), cellValue(" 7 "))
	assert.Equal(t, "hello", cellValue("hello"))
	assert.Equal(t, "", cellValue("   "))
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Extractor = (*Extractor)(nil)
}
