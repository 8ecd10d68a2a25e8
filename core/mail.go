package core

import (
	"bytes"
	"encoding/base64"
	"fmt"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"net/http"
	"net/mail"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/pathway/fs"
)

const emailTemplatesDir = "assets/templates/email"

type (
	// EmailService sends emails in the background; undeliverable messages are logged, not returned.
	EmailService interface {
		SendMessages(messages ...*EmailMessage)
	}

	// EmailMessage is an email with either a plain body or a named template rendered with TemplateData.
	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // plain text body, takes precedence over the .txt template
		Attachments []Attachment

		TemplateName    string // file name under assets/templates/email, without extension
		TemplateData    interface{}
		FrontendBaseURL string

		// set by Render
		TextContent string
		HTMLContent string
	}

	// Attachment content is base64 encoded.
	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	// templateData is the dot of every email template.
	templateData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// emailTemplate holds the variants of one email; either may be missing.
	emailTemplate struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}

	templateRegistry struct {
		mu     sync.RWMutex
		byName map[string]emailTemplate
	}
)

var emailTemplates = &templateRegistry{byName: make(map[string]emailTemplate)}

func (reg *templateRegistry) lookup(name string) (emailTemplate, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	tmpl, ok := reg.byName[name]
	return tmpl, ok
}

func (reg *templateRegistry) replace(byName map[string]emailTemplate) {
	reg.mu.Lock()
	reg.byName = byName
	reg.mu.Unlock()
}

func execute(tmpl interface {
	Execute(w io.Writer, data interface{}) error
}, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render fills TextContent and HTMLContent. Unknown templates render nothing.
func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}
	tmpl, ok := emailTemplates.lookup(m.TemplateName)
	if !ok {
		return nil
	}

	data := templateData{FrontendBaseURL: m.FrontendBaseURL, Data: m.TemplateData}
	var err error
	if tmpl.text != nil && m.BodyStr == "" {
		if m.TextContent, err = execute(tmpl.text, data); err != nil {
			return errors.Wrapf(err, "rendering %s.txt", m.TemplateName)
		}
	}
	if tmpl.html != nil {
		if m.HTMLContent, err = execute(tmpl.html, data); err != nil {
			return errors.Wrapf(err, "rendering %s.gohtml", m.TemplateName)
		}
	}
	return nil
}

// Attach reads r into a new attachment. The content type is sniffed unless given.
func (m *EmailMessage) Attach(r io.Reader, filename string, contentType ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "reading %s", filename)
	}
	ct := http.DetectContentType(content)
	if len(contentType) > 0 {
		ct = contentType[0]
	}
	m.Attachments = append(m.Attachments, Attachment{
		Content:     bytes.NewBufferString(base64.StdEncoding.EncodeToString(content)),
		ContentType: ct,
		Filename:    filename,
	})
	return nil
}

func (m *EmailMessage) AttachFile(name string, contentType ...string) error {
	f, err := os.Open(name)
	if err != nil {
		return errors.Wrap(err, "opening attachment")
	}
	defer f.Close()
	return m.Attach(f, filepath.Base(name), contentType...)
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return m.TextContent != "" || m.HTMLContent != "" }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

// ParseEmailTemplates loads the embedded email templates, each wrapped by the `_base` file of its extension.
// With strict set, rendering fails on missing keys. Broken files are logged and skipped.
func ParseEmailTemplates(logger Logger, strict bool) {
	files, err := fs.Glob(appfs.FS, path.Join(emailTemplatesDir, "*"))
	if err != nil {
		logger.Error(fmt.Sprintf("listing email templates: %v", err), err)
		return
	}
	missingKey := "missingkey=default"
	if strict {
		missingKey = "missingkey=error"
	}

	parsed := make(map[string]emailTemplate)
	for _, file := range files {
		base := path.Base(file)
		if strings.HasPrefix(base, "_") {
			continue
		}
		ext := path.Ext(base)
		name := strings.TrimSuffix(base, ext)
		layout := path.Join(emailTemplatesDir, "_base"+ext)

		tmpl := parsed[name]
		switch ext {
		case ".txt":
			tmpl.text, err = texttmpl.ParseFS(appfs.FS, layout, file)
			if err == nil {
				tmpl.text.Option(missingKey)
			}
		case ".gohtml":
			tmpl.html, err = htmltmpl.ParseFS(appfs.FS, layout, file)
			if err == nil {
				tmpl.html.Option(missingKey)
			}
		default:
			continue
		}
		if err != nil {
			logger.Error(fmt.Sprintf("parsing email template %s: %v", base, err), err)
			continue
		}
		parsed[name] = tmpl
	}
	emailTemplates.replace(parsed)
}
