package core_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pathway/core"
	logsvc "github.com/trezcool/pathway/services/logger"
)

type registrationData struct {
	Name      string
	EventName string
	StartsAt  string
	Location  string
}

func TestEmailMessage_Render(t *testing.T) {
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(logsvc.NewRollbarLogger(new(bytes.Buffer), conf), true)

	tests := []struct {
		name     string
		msg      core.EmailMessage
		wantText []string
		wantHTML []string
		wantErr  bool
	}{
		{
			name:     "plain body",
			msg:      core.EmailMessage{BodyStr: "Hi"},
			wantText: []string{"Hi"},
		},
		{
			name: "template",
			msg: core.EmailMessage{
				TemplateName:    "event_registration",
				TemplateData:    registrationData{Name: "Amani", EventName: "Education Fair", StartsAt: "Monday", Location: "Kinshasa"},
				FrontendBaseURL: "https://crm.test",
			},
			wantText: []string{"Hello Amani,", "Education Fair", "Where: Kinshasa", "https://crm.test"},
			wantHTML: []string{"<strong>Education Fair</strong>", "Kinshasa"},
		},
		{
			name: "plain body wins over the text template",
			msg: core.EmailMessage{
				BodyStr:      "Short version",
				TemplateName: "event_registration",
				TemplateData: registrationData{Name: "Amani", EventName: "Fair", StartsAt: "Monday"},
			},
			wantText: []string{"Short version"},
			wantHTML: []string{"Fair"},
		},
		{
			name: "missing key",
			msg: core.EmailMessage{
				TemplateName: "event_registration",
				TemplateData: map[string]string{"Name": "Amani"},
			},
			wantErr: true,
		},
		{name: "unknown template", msg: core.EmailMessage{TemplateName: "lol"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			err := msg.Render()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, s := range tt.wantText {
				assert.Contains(t, msg.TextContent, s)
			}
			for _, s := range tt.wantHTML {
				assert.Contains(t, msg.HTMLContent, s)
			}
			if len(tt.wantText) == 0 && len(tt.wantHTML) == 0 {
				assert.False(t, msg.HasContent())
			}
		})
	}
}

func TestEmailMessage_Attach(t *testing.T) {
	var msg core.EmailMessage
	require.NoError(t, msg.Attach(strings.NewReader("a,b\n"), "report.csv", "text/csv"))
	require.NoError(t, msg.Attach(strings.NewReader("<html><body>x</body></html>"), "page.html"))

	require.True(t, msg.HasAttachments())
	assert.Equal(t, "YSxiCg==", msg.Attachments[0].Content.String())
	assert.Equal(t, "text/csv", msg.Attachments[0].ContentType)
	assert.Equal(t, "text/html; charset=utf-8", msg.Attachments[1].ContentType)

	assert.Error(t, msg.AttachFile("does-not-exist.pdf"))
}
