package event

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_normalizeHeader(t *testing.T) {
	tests := map[string]string{
		"First Name":      colFirstName,
		"\ufeffFirstName": colFirstName,
		" E-mail ":        colEmail,
		"Phone Number":    colPhone,
		"tel":             colPhone,
		"Surname":         colLastName,
		"Country":         colInterestedCountry,
		"Comments":        colNotes,
		"Favourite.Color": "favourite_color",
	}
	for header, want := range tests {
		assert.Equal(t, want, normalizeHeader(header), header)
	}
}

func Test_columnIndexes(t *testing.T) {
	idx := columnIndexes([]string{"Name", "Mail", "Unknown", "first_name", "Mobile"})
	assert.Equal(t, map[string]int{colFirstName: 0, colEmail: 1, colPhone: 4}, idx, "first occurrence wins, unknown columns are ignored")
}

func Test_detectDelimiter(t *testing.T) {
	assert.Equal(t, ',', detectDelimiter([]byte("a,b,c\n1;2;3;4\n")))
	assert.Equal(t, ';', detectDelimiter([]byte("a;b;c\n")))
	assert.Equal(t, ',', detectDelimiter([]byte("a\n")))
}

func Test_readSheet(t *testing.T) {
	t.Run("csv line numbers", func(t *testing.T) {
		sh, err := readSheet("x.csv", strings.NewReader("\n\na,b\n1,2\n,\n\"multi\nline\",3\n4,5\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, sh.Header)
		lines := make([]int, 0, len(sh.Rows))
		for _, row := range sh.Rows {
			lines = append(lines, row.Line)
		}
		assert.Equal(t, []int{4, 6, 8}, lines, "blank rows are skipped")
	})

	t.Run("too many rows", func(t *testing.T) {
		var b strings.Builder
		b.WriteString("first_name\n")
		for i := 0; i <= MaxImportRows; i++ {
			b.WriteString("x\n")
		}
		_, err := readSheet("x.csv", strings.NewReader(b.String()))
		assert.ErrorIs(t, err, ErrTooManyRows)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := readSheet("x.csv", strings.NewReader(strings.Repeat("a", MaxImportSize+1)))
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("invalid xlsx", func(t *testing.T) {
		_, err := readSheet("x.xlsx", strings.NewReader("not a zip"))
		assert.Error(t, err)
	})
}
