package core

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func testValidator() *validator.Validate {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	InitValidators(validate, translator)
	return validate
}

func TestCustomValidators(t *testing.T) {
	validate := testValidator()

	tests := []struct {
		name    string
		value   string
		tag     string
		wantErr bool
	}{
		{name: "alphanum_: letters digits underscores", value: "walk_in2", tag: "alphanum_"},
		{name: "alphanum_: space", value: "has space", tag: "alphanum_", wantErr: true},
		{name: "alphanum_: trailing space", value: "radio ", tag: "alphanum_", wantErr: true},
		{name: "alphanum_: dash", value: "walk-in", tag: "alphanum_", wantErr: true},
		{name: "notblank: spaces", value: "   ", tag: "notblank", wantErr: true},
		{name: "notblank: text", value: " a ", tag: "notblank"},
		{name: "phone: cleaned", value: "+243810000001", tag: "phone"},
		{name: "phone: with spaces", value: "+243 810 000 001", tag: "phone", wantErr: true},
		{name: "phone: too short", value: "12345", tag: "phone", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Var(tt.value, tt.tag)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
