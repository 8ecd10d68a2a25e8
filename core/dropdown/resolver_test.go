package dropdown

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathway/core"
)

func testResolver() Resolver {
	return NewResolver(map[string][]Option{
		FieldStatus: {
			{ID: "id-new", Key: "new", Label: "New"},
			{ID: "id-follow", Key: "follow_up", Label: "Follow Up"},
		},
	})
}

func TestResolver_Match(t *testing.T) {
	r := testResolver()
	tests := []struct {
		name    string
		value   string
		wantKey string
		wantOk  bool
	}{
		{name: "key", value: "follow_up", wantKey: "follow_up", wantOk: true},
		{name: "id", value: "id-new", wantKey: "new", wantOk: true},
		{name: "key, other case", value: "FOLLOW_UP", wantKey: "follow_up", wantOk: true},
		{name: "label", value: " follow up ", wantKey: "follow_up", wantOk: true},
		{name: "unknown", value: "lost"},
		{name: "empty", value: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := r.Key(FieldStatus, tt.value)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestResolver_Label(t *testing.T) {
	r := testResolver()
	assert.Equal(t, "Follow Up", r.Label(FieldStatus, "follow_up"))
	assert.Equal(t, "lost", r.Label(FieldStatus, "lost"), "unknown values are shown as is")
	assert.Equal(t, "x", r.Label("source", "x"))
	assert.Equal(t, "new", r.Default(FieldStatus))
	assert.Empty(t, r.Default("source"))
	assert.True(t, r.Has(FieldStatus))
	assert.False(t, r.Has("source"))
}

func TestNormalizeWith(t *testing.T) {
	r := testResolver()
	tests := []struct {
		name      string
		field     string
		value     string
		optional  bool
		want      string
		wantField string
	}{
		{name: "empty gets default", field: FieldStatus, want: "new"},
		{name: "label to key", field: FieldStatus, value: "Follow Up", want: "follow_up"},
		{name: "unknown", field: FieldStatus, value: "lol", wantField: FieldStatus},
		{name: "empty without options", field: "source", wantField: "source"},
		{name: "free text field", field: "source", value: "radio", want: "radio"},
		{name: "optional empty", field: FieldStatus, optional: true},
		{name: "optional set", field: FieldStatus, value: "NEW", optional: true, want: "new"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalize := NormalizeWith
			if tt.optional {
				normalize = NormalizeOptional
			}
			got, err := normalize(r, tt.field, tt.value)
			if tt.wantField != "" {
				var vErr *core.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadSeeds(t *testing.T) {
	seeds, err := LoadSeeds(nil)
	require.NoError(t, err)
	for _, module := range Modules {
		assert.Contains(t, seeds, module)
		assert.NotEmpty(t, seeds[module][FieldStatus], module)
	}
	assert.Equal(t, "new", seeds[ModuleLead][FieldStatus][0].Key)
	assert.Equal(t, "not_started", seeds[ModuleAdmission][FieldVisaStatus][0].Key)

	custom, err := LoadSeeds([]byte("lead:\n  source:\n    - {key: radio, label: Radio, color: \"#ff0000\"}\n    - {key: tv, label: TV}\n"))
	require.NoError(t, err)
	want := Seeds{ModuleLead: {FieldSource: {
		{Key: "radio", Label: "Radio", Color: "#ff0000"},
		{Key: "tv", Label: "TV"},
	}}}
	if diff := cmp.Diff(want, custom); diff != "" {
		t.Errorf("LoadSeeds() mismatch (-want +got):\n%s", diff)
	}

	_, err = LoadSeeds([]byte("lead: [oops"))
	assert.Error(t, err)
}
