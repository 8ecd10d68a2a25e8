package event

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/pathway/core"
)

const (
	MaxImportRows = 5000
	MaxImportSize = 10 << 20 // 10MB
)

var (
	// errors
	ErrUnsupportedFile = errors.New("unsupported file type: upload a .csv or .xlsx file")
	ErrEmptyFile       = errors.New("the file is empty")
	ErrFileTooLarge    = errors.Errorf("the file must not exceed %d MB", MaxImportSize>>20)
	ErrTooManyRows     = errors.Errorf("the file must not contain more than %d rows", MaxImportRows)

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
)

// sheetRow is a spreadsheet line; Line is 1-based, the header being line 1.
type sheetRow struct {
	Line  int
	Cells []string
}

func (r sheetRow) blank() bool {
	for _, c := range r.Cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

type sheet struct {
	Header []string
	Rows   []sheetRow
}

func fileError(err error) error {
	return core.NewValidationError(err, core.FieldError{Field: "file", Error: err.Error()})
}

// readSheet reads the first sheet of a .csv or .xlsx file.
func readSheet(filename string, r io.Reader) (sheet, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".csv" && ext != ".xlsx" {
		return sheet{}, fileError(ErrUnsupportedFile)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImportSize+1))
	if err != nil {
		return sheet{}, errors.Wrap(err, "reading file")
	}
	if len(data) > MaxImportSize {
		return sheet{}, fileError(ErrFileTooLarge)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return sheet{}, fileError(ErrEmptyFile)
	}

	var rows []sheetRow
	if ext == ".csv" {
		rows, err = readCSV(data)
	} else {
		rows, err = readXLSX(data)
	}
	if err != nil {
		return sheet{}, err
	}

	// header is the first non blank line
	for len(rows) > 0 && rows[0].blank() {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return sheet{}, fileError(ErrEmptyFile)
	}
	sh := sheet{Header: rows[0].Cells}
	for _, row := range rows[1:] {
		if row.blank() {
			continue
		}
		if sh.Rows = append(sh.Rows, row); len(sh.Rows) > MaxImportRows {
			return sheet{}, fileError(ErrTooManyRows)
		}
	}
	return sh, nil
}

func readCSV(data []byte) ([]sheetRow, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = detectDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var rows []sheetRow
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fileError(errors.Wrap(err, "invalid CSV"))
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, sheetRow{Line: line, Cells: record})
	}
	return rows, nil
}

// detectDelimiter picks ";" over "," when the first line has more of them (spreadsheets exported with a
// comma decimal separator).
func detectDelimiter(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}

func readXLSX(data []byte) ([]sheetRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fileError(errors.Wrap(err, "invalid XLSX"))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fileError(ErrEmptyFile)
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "reading rows")
	}
	rows := make([]sheetRow, 0, len(records))
	for i, record := range records {
		rows = append(rows, sheetRow{Line: i + 1, Cells: record})
	}
	return rows, nil
}
