package notify

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"
)

// buildMIME assembles msg as a gomail message with alternative text/HTML
// parts and any attachments.
func buildMIME(fromEmail, fromName string, msg EmailMessage) *gomail.Message {
	m := gomail.NewMessage(gomail.SetCharset("UTF-8"))
	m.SetAddressHeader("From", fromEmail, fromName)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.Body != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Body)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Body)
	}

	for _, att := range msg.Attachments {
		data := att.Data
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		m.Attach(att.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {contentType}}),
		)
	}
	return m
}

// rawMIME renders msg as an RFC 5322 message.
func rawMIME(fromEmail, fromName string, msg EmailMessage) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buildMIME(fromEmail, fromName, msg).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("notify: render mime: %w", err)
	}
	return buf.Bytes(), nil
}
