package event_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/activity"
	"github.com/trezcool/pathway/core/event"
	"github.com/trezcool/pathway/core/user"
	"github.com/trezcool/pathway/testutil"
)

func xlsxFile(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestRegistrationService_Import(t *testing.T) {
	env := testutil.NewEnv(t)
	svc := env.Services.Registrations
	ctx := context.Background()
	desk := testutil.CreateActor(t, env.Users, "desk", user.RoleFrontDesk)

	tests := []struct {
		name         string
		filename     string
		content      []byte
		dryRun       bool
		capacity     int
		wantErr      error
		wantReport   event.ImportReport
		wantErrAt    []event.ImportError // compared on Row & Field
		wantImported int
	}{
		{
			name:     "unsupported extension",
			filename: "people.txt",
			content:  []byte("first_name,email\nAmani,a@mail.io\n"),
			wantErr:  event.ErrUnsupportedFile,
		},
		{
			name:     "empty file",
			filename: "people.csv",
			content:  []byte("\n \n"),
			wantErr:  event.ErrEmptyFile,
		},
		{
			name:       "missing columns",
			filename:   "people.csv",
			content:    []byte("Name,Country\nAmani,Canada\n"),
			wantReport: event.ImportReport{TotalRows: 1, InvalidRows: 1},
			wantErrAt:  []event.ImportError{{Row: 1, Field: "email"}, {Row: 1, Field: "phone"}},
		},
		{
			name:     "row errors",
			filename: "people.csv",
			content: []byte("First Name,E-mail,Mobile,Status\n" +
				"Amani,amani@mail.io,,\n" +
				",nofirst@mail.io,,\n" +
				"Beni,amani@mail.io,,\n" +
				"Chris,,,\n" +
				"Dede,dede@mail.io,,lol\n"),
			wantReport: event.ImportReport{TotalRows: 5, ValidRows: 1, InvalidRows: 4},
			wantErrAt: []event.ImportError{
				{Row: 3, Field: "first_name"},
				{Row: 4, Field: "email"},
				{Row: 5, Field: "email"},
				{Row: 5, Field: "phone"},
				{Row: 6, Field: "status"},
			},
		},
		{
			name:     "dry run with semicolons and BOM",
			filename: "people.CSV",
			content: []byte("\xEF\xBB\xBFfirst_name;email;phone;notes\n" +
				"Amani;amani@mail.io;;met at the door\n" +
				"\n" +
				"Beni;;+243 810 000 002;\n"),
			dryRun:     true,
			wantReport: event.ImportReport{TotalRows: 2, ValidRows: 2},
		},
		{
			name:     "over capacity",
			filename: "people.csv",
			content:  []byte("first_name,email,phone\nAmani,amani@mail.io,\nBeni,beni@mail.io,\n"),
			capacity: 1,
			wantErr:  event.ErrEventFull,
		},
		{
			name:     "xlsx",
			filename: "people.xlsx",
			content: xlsxFile(t, [][]interface{}{
				{"First Name", "Last Name", "Email", "Phone", "Status"},
				{"Amani", "Kabila", "amani@mail.io", "", "Attended"},
				{"Beni", "", "", "243810000002", ""},
			}),
			wantReport:   event.ImportReport{TotalRows: 2, ValidRows: 2},
			wantImported: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := createEvent(t, env, event.NewEvent{Name: tt.name, Capacity: tt.capacity})

			rep, err := svc.Import(ctx, desk, evt.ID, tt.filename, bytes.NewReader(tt.content), tt.dryRun)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantReport.TotalRows, rep.TotalRows)
			assert.Equal(t, tt.wantReport.ValidRows, rep.ValidRows)
			assert.Equal(t, tt.wantReport.InvalidRows, rep.InvalidRows)
			assert.Equal(t, tt.wantImported, rep.Imported)

			gotErrAt := make([]event.ImportError, 0, len(rep.Errors))
			for _, e := range rep.Errors {
				assert.NotEmpty(t, e.Message)
				gotErrAt = append(gotErrAt, event.ImportError{Row: e.Row, Field: e.Field})
			}
			assert.ElementsMatch(t, append([]event.ImportError{}, tt.wantErrAt...), gotErrAt)

			regs, err := svc.Query(ctx, event.RegistrationFilter{EventID: evt.ID}, nil, core.Page{})
			require.NoError(t, err)
			assert.Len(t, regs, tt.wantImported, "rows are only imported when the whole file is valid")
		})
	}

	t.Run("import logs an activity", func(t *testing.T) {
		evt := createEvent(t, env, event.NewEvent{Name: "Logged"})
		csv := "first_name,email\nAmani,amani@mail.io\nBeni,beni@mail.io\n"
		rep, err := svc.Import(ctx, desk, evt.ID, "fair.csv", strings.NewReader(csv), false)
		require.NoError(t, err)
		assert.Equal(t, 2, rep.Imported)

		regs, err := svc.Query(ctx, event.RegistrationFilter{EventID: evt.ID}, nil, core.Page{})
		require.NoError(t, err)
		for _, reg := range regs {
			assert.Equal(t, "import", reg.Source)
			assert.Equal(t, "registered", reg.Status)
		}

		acts, err := env.Services.Activities.List(ctx, desk, activity.EntityEvent, evt.ID, core.Page{})
		require.NoError(t, err)
		var found bool
		for _, act := range acts {
			found = found || act.Content == "2 registrations imported from fair.csv"
		}
		assert.True(t, found)

		t.Run("re-import is rejected", func(t *testing.T) {
			rep, err := svc.Import(ctx, desk, evt.ID, "fair.csv", strings.NewReader(csv), false)
			require.NoError(t, err)
			assert.True(t, rep.HasErrors())
			assert.Equal(t, 0, rep.Imported)
		})
	})
}
