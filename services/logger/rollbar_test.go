package logsvc

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathway/core"
	"github.com/trezcool/pathway/core/user"
)

func TestRollbarLogger_Fields(t *testing.T) {
	conf := core.NewTestConfig()
	buf := new(bytes.Buffer)
	lg := NewRollbarLogger(buf, conf)
	defer lg.Close()

	lg.Error("importing registrations",
		errors.New("boom"),
		map[string]interface{}{"event_id": "e1"},
		user.User{ID: "u1", Username: "jane"},
	)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "importing registrations", line["msg"])
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "e1", line["event_id"])
	assert.Equal(t, "u1", line["user_id"])
}

func TestRollbarLogger_DebugLevel(t *testing.T) {
	conf := core.NewTestConfig()
	buf := new(bytes.Buffer)
	lg := NewRollbarLogger(buf, conf)
	lg.Debug("hidden")
	assert.Empty(t, buf.String(), "debug is off unless conf.Debug")

	conf.Debug = true
	lg = NewRollbarLogger(buf, conf)
	lg.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
