package emailsvc

import (
	"bytes"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathway/core"
	logsvc "github.com/trezcool/pathway/services/logger"
)

func TestConsoleService_SendMessages(t *testing.T) {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(new(bytes.Buffer), conf)
	svc := NewConsoleServiceMock(conf, logger)

	svc.SendMessages(
		&core.EmailMessage{
			To:      []mail.Address{{Name: "Jane", Address: "jane@example.com"}},
			Subject: "Hello",
			BodyStr: "Welcome aboard",
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "x"},
		&core.EmailMessage{To: []mail.Address{{Address: "empty@example.com"}}, Subject: "no content"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Hello", sent[0].Subject)
	assert.Equal(t, "Welcome aboard", sent[0].TextContent)

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}

func TestConsoleService_Build(t *testing.T) {
	conf := core.NewTestConfig()
	out := new(bytes.Buffer)
	svc := NewConsoleService(conf, out, logsvc.NewRollbarLogger(new(bytes.Buffer), conf))
	svc.sync = true

	msg := &core.EmailMessage{
		To:      []mail.Address{{Address: "jane@example.com"}},
		Subject: "Report",
		BodyStr: "see attached",
	}
	require.NoError(t, msg.Attach(strings.NewReader("a,b\n1,2\n"), "report.csv", "text/csv"))
	svc.SendMessages(msg)

	body := out.String()
	assert.Contains(t, body, "Subject: [Pathway] Report")
	assert.Contains(t, body, "multipart/mixed")
	assert.Contains(t, body, "filename=report.csv")
	assert.Contains(t, body, "see attached")
}

func TestNewService(t *testing.T) {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(new(bytes.Buffer), conf)
	_, ok := NewService(conf, logger).(*ConsoleService)
	assert.True(t, ok)

	conf.TestMode = false
	conf.SendgridApiKey = "SG.key"
	_, ok = NewService(conf, logger).(*SendgridService)
	assert.True(t, ok)
}
