package event

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/access"
	"github.com/trezcool/pathway/core/activity"
	"github.com/trezcool/pathway/core/dropdown"
)

// import columns
const (
	colFirstName         = "first_name"
	colLastName          = "last_name"
	colEmail             = "email"
	colPhone             = "phone"
	colStatus            = "status"
	colSource            = "source"
	colInterestedCountry = "interested_country"
	colNotes             = "notes"
)

var (
	requiredColumns = []string{colFirstName}
	contactColumns  = []string{colEmail, colPhone} // at least one
	knownColumns    = []string{colFirstName, colLastName, colEmail, colPhone, colStatus, colSource, colInterestedCountry, colNotes}

	columnAliases = map[string]string{
		"e_mail":        colEmail,
		"email_address": colEmail,
		"mail":          colEmail,
		"mobile":        colPhone,
		"phone_number":  colPhone,
		"telephone":     colPhone,
		"tel":           colPhone,
		"name":          colFirstName,
		"first":         colFirstName,
		"firstname":     colFirstName,
		"given_name":    colFirstName,
		"surname":       colLastName,
		"last":          colLastName,
		"lastname":      colLastName,
		"family_name":   colLastName,
		"country":       colInterestedCountry,
		"comments":      colNotes,
		"comment":       colNotes,
	}

	headerReplacer = strings.NewReplacer(" ", "_", "-", "_", ".", "_")
)

// ImportError is an error on a row of an imported file. Row 1 is the header.
type ImportError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ImportReport struct {
	TotalRows   int           `json:"total_rows"`
	ValidRows   int           `json:"valid_rows"`
	InvalidRows int           `json:"invalid_rows"`
	Imported    int           `json:"imported"`
	Errors      []ImportError `json:"errors"`
}

func (rep ImportReport) HasErrors() bool {
	return len(rep.Errors) > 0
}

// normalizeHeader maps a header cell to an import column.
func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.ToLower(strings.TrimPrefix(h, "\ufeff")))
	h = headerReplacer.Replace(h)
	if col, ok := columnAliases[h]; ok {
		return col
	}
	return h
}

// columnIndexes maps known import columns to their position; the first occurrence wins.
func columnIndexes(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		col := normalizeHeader(h)
		if _, seen := idx[col]; seen || !core.StringsContain(knownColumns, col) {
			continue
		}
		idx[col] = i
	}
	return idx
}

func cell(row sheetRow, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row.Cells) {
		return ""
	}
	return row.Cells[i]
}

type importRow struct {
	line int
	reg  NewRegistration
}

// Import registers the rows of a .csv or .xlsx file to an event.
// Rows are all validated first; nothing is imported if any row is invalid or if dryRun is set.
// File level problems (type, size, row count) are returned as a core.ValidationError on "file".
func (svc *RegistrationService) Import(ctx context.Context, actor access.Actor, eventID, filename string, r io.Reader, dryRun bool) (ImportReport, error) {
	evt, err := svc.getEvent(ctx, eventID)
	if err != nil {
		return ImportReport{}, err
	}
	sh, err := readSheet(filename, r)
	if err != nil {
		return ImportReport{}, err
	}

	rep := ImportReport{TotalRows: len(sh.Rows), Errors: []ImportError{}}
	idx := columnIndexes(sh.Header)
	present := make([]string, 0, len(idx))
	for col := range idx {
		present = append(present, col)
	}
	missing := strmangle.SetComplement(requiredColumns, present)
	if len(strmangle.SetComplement(contactColumns, present)) == len(contactColumns) {
		missing = append(missing, contactColumns...)
	}
	if len(missing) > 0 {
		for _, col := range missing {
			rep.Errors = append(rep.Errors, ImportError{Row: 1, Field: col, Message: fmt.Sprintf("missing column %q", col)})
		}
		rep.InvalidRows = rep.TotalRows
		return rep, nil
	}

	rows, err := svc.validateRows(ctx, evt, sh, idx, &rep)
	if err != nil {
		return ImportReport{}, err
	}
	if rep.HasErrors() || dryRun {
		return rep, nil
	}

	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := svc.checkCapacity(ctx, evt, len(rows)); err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := svc.create(ctx, evt, row.reg); err != nil {
				return errors.Wrapf(err, "importing row %d", row.line)
			}
		}
		content := fmt.Sprintf("%d registrations imported from %s", len(rows), filename)
		return svc.activities.RecordCreated(ctx, actor, activity.EntityEvent, evt.ID, content)
	})
	if err != nil {
		return ImportReport{}, err
	}
	rep.Imported = len(rows)
	return rep, nil
}

func (svc *RegistrationService) validateRows(ctx context.Context, evt Event, sh sheet, idx map[string]int, rep *ImportReport) ([]importRow, error) {
	r, err := svc.resolver(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := svc.repo.ListByEvent(ctx, evt.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing registrations")
	}
	registered := make(map[string]bool, 2*len(existing))
	for _, reg := range existing {
		if reg.Email != "" {
			registered[colEmail+":"+reg.Email] = true
		}
		if reg.Phone != "" {
			registered[colPhone+":"+reg.Phone] = true
		}
	}
	seen := make(map[string]int) // "field:value" -> line

	rows := make([]importRow, 0, len(sh.Rows))
	for _, row := range sh.Rows {
		var errs []ImportError
		addErr := func(field, msg string) {
			errs = append(errs, ImportError{Row: row.Line, Field: field, Message: msg})
		}

		nr := NewRegistration{
			EventID:           evt.ID,
			FirstName:         cell(row, idx, colFirstName),
			LastName:          cell(row, idx, colLastName),
			Email:             cell(row, idx, colEmail),
			Phone:             cell(row, idx, colPhone),
			Status:            cell(row, idx, colStatus),
			Source:            cell(row, idx, colSource),
			InterestedCountry: cell(row, idx, colInterestedCountry),
			Notes:             cell(row, idx, colNotes),
		}
		nr.Clean()
		if nr.Source == "" {
			nr.Source = "import"
		}

		if err := svc.validate.Struct(nr); err != nil {
			var vErrs validator.ValidationErrors
			if !errors.As(err, &vErrs) {
				return nil, errors.Wrap(err, "validating row")
			}
			for _, fe := range vErrs {
				addErr(fe.Field(), fe.Translate(svc.translator))
			}
		}

		status, err := dropdown.NormalizeWith(r, dropdown.FieldStatus, nr.Status)
		if err != nil {
			var vErr *core.ValidationError
			if !errors.As(err, &vErr) {
				return nil, err
			}
			addErr(colStatus, vErr.Error())
		}
		nr.Status = status

		for _, fv := range [][2]string{{colEmail, nr.Email}, {colPhone, nr.Phone}} {
			field, value := fv[0], fv[1]
			if value == "" {
				continue
			}
			key := field + ":" + value
			if line, dup := seen[key]; dup {
				addErr(field, fmt.Sprintf("duplicates row %d", line))
			} else {
				seen[key] = row.Line
			}
			if registered[key] {
				addErr(field, "already registered")
			}
		}

		if len(errs) > 0 {
			rep.InvalidRows++
			rep.Errors = append(rep.Errors, errs...)
			continue
		}
		rep.ValidRows++
		rows = append(rows, importRow{line: row.Line, reg: nr})
	}

	sort.SliceStable(rep.Errors, func(i, j int) bool { return rep.Errors[i].Row < rep.Errors[j].Row })
	return rows, nil
}
