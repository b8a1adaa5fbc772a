package reportdelivery

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-rights/report"
)

// EmailMessage describes an outbound email delivery. Headers carries
// extra message headers, such as the report tracking headers the
// delivery service stamps on every send.
type EmailMessage struct {
	From       string
	To         []string
	Cc         []string
	Bcc        []string
	ReplyTo    string
	Subject    string
	Body       string
	Headers    map[string]string
	Attachment *Attachment
}

func (m EmailMessage) recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	out = append(out, m.Bcc...)
	return out
}

// EmailSender delivers email messages.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMTPClient abstracts SMTP delivery.
type SMTPClient interface {
	SendMail(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

type smtpClient struct{}

func (smtpClient) SendMail(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	return smtp.SendMail(addr, auth, from, to, msg)
}

// SMTPMailer sends email via SMTP.
type SMTPMailer struct {
	Addr   string
	Auth   smtp.Auth
	From   string
	Client SMTPClient
	Now    func() time.Time
}

// Send delivers the message via SMTP.
func (m *SMTPMailer) Send(ctx context.Context, msg EmailMessage) error {
	if m == nil {
		return report.NewError(report.KindInternal, "mailer is nil", nil)
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = strings.TrimSpace(m.From)
	}
	if from == "" {
		return report.NewError(report.KindValidation, "email from is required", nil)
	}
	recipients := msg.recipients()
	if len(recipients) == 0 {
		return report.NewError(report.KindValidation, "email recipients are required", nil)
	}

	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	payload, err := encodeEmail(msg, from, now)
	if err != nil {
		return err
	}

	client := m.Client
	if client == nil {
		client = smtpClient{}
	}
	if err := client.SendMail(m.Addr, m.Auth, from, recipients, payload); err != nil {
		return report.NewError(report.KindExternal, "smtp send failed", err)
	}
	return nil
}

// encodeEmail renders the RFC 2822 message, multipart when a report
// artifact rides along as an attachment.
func encodeEmail(msg EmailMessage, from string, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	writeEnvelope(&buf, msg, from, now)

	if msg.Attachment == nil {
		writeHeader(&buf, "Content-Type", "text/plain; charset=utf-8")
		writeHeader(&buf, "Content-Transfer-Encoding", "7bit")
		buf.WriteString("\r\n")
		buf.WriteString(msg.Body)
		buf.WriteString("\r\n")
		return buf.Bytes(), nil
	}

	writer := multipart.NewWriter(&buf)
	writeHeader(&buf, "Content-Type", fmt.Sprintf("multipart/mixed; boundary=%q", writer.Boundary()))
	buf.WriteString("\r\n")

	if err := writeBodyPart(writer, msg.Body); err != nil {
		return nil, err
	}
	if err := writeAttachmentPart(writer, msg.Attachment); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeEnvelope(buf *bytes.Buffer, msg EmailMessage, from string, now time.Time) {
	writeHeader(buf, "From", from)
	if len(msg.To) > 0 {
		writeHeader(buf, "To", strings.Join(msg.To, ", "))
	}
	if len(msg.Cc) > 0 {
		writeHeader(buf, "Cc", strings.Join(msg.Cc, ", "))
	}
	if reply := strings.TrimSpace(msg.ReplyTo); reply != "" {
		writeHeader(buf, "Reply-To", reply)
	}
	writeHeader(buf, "Subject", msg.Subject)
	writeHeader(buf, "Date", now.Format(time.RFC1123Z))
	writeHeader(buf, "MIME-Version", "1.0")

	keys := make([]string, 0, len(msg.Headers))
	for key := range msg.Headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		writeHeader(buf, key, msg.Headers[key])
	}
}

func writeBodyPart(writer *multipart.Writer, body string) error {
	headers := make(textproto.MIMEHeader)
	headers.Set("Content-Type", "text/plain; charset=utf-8")
	headers.Set("Content-Transfer-Encoding", "7bit")
	part, err := writer.CreatePart(headers)
	if err != nil {
		return err
	}
	_, err = part.Write([]byte(body))
	return err
}

func writeAttachmentPart(writer *multipart.Writer, attachment *Attachment) error {
	contentType := attachment.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := make(textproto.MIMEHeader)
	headers.Set("Content-Type", contentType)
	headers.Set("Content-Transfer-Encoding", "base64")
	headers.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.Filename))
	part, err := writer.CreatePart(headers)
	if err != nil {
		return err
	}
	return writeBase64(part, attachment.Data)
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

// writeBase64 emits the encoded payload wrapped at 76 columns per
// RFC 2045.
func writeBase64(w io.Writer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := w.Write([]byte(encoded[:76] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	if len(encoded) > 0 {
		if _, err := w.Write([]byte(encoded + "\r\n")); err != nil {
			return err
		}
	}
	return nil
}
