// internal/infra/smtpmail/transport.go
package smtpmail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"procurement_digest_bot/internal/domain/mail"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/google/uuid"
)

const dialTimeout = 30 * time.Second

// Config holds the SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Transport delivers digests over SMTP as multipart/alternative messages
// with a markdown text part and the HTML part.
type Transport struct {
	cfg       Config
	converter *md.Converter
	now       func() time.Time
}

var _ mail.Transport = (*Transport)(nil)

func NewTransport(cfg Config) *Transport {
	return &Transport{
		cfg:       cfg,
		converter: md.NewConverter("", true, nil),
		now:       time.Now,
	}
}

// Deliver sends one message to all recipients. Connection and TLS problems
// are returned as errors; a server refusing the message is reported in the Receipt.
func (t *Transport) Deliver(ctx context.Context, msg mail.Message) (mail.Receipt, error) {
	if len(msg.To) == 0 {
		return mail.Receipt{Success: false, Error: "no recipients"}, nil
	}

	body, err := t.buildMessage(msg, uuid.NewString())
	if err != nil {
		return mail.Receipt{}, err
	}

	client, err := t.dial(ctx)
	if err != nil {
		return mail.Receipt{}, err
	}
	defer client.Close()

	if err := t.send(client, msg.To, body); err != nil {
		var protoErr *textproto.Error
		if errors.As(err, &protoErr) {
			return mail.Receipt{Success: false, Error: err.Error()}, nil
		}
		return mail.Receipt{}, err
	}
	return mail.Receipt{Success: true}, nil
}

func (t *Transport) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	dialer := &net.Dialer{Timeout: dialTimeout}
	tlsConfig := &tls.Config{ServerName: t.cfg.Host}

	var conn net.Conn
	var err error
	if t.cfg.Port == 465 { // implicit TLS
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("SMTP dial %s failed: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating SMTP client: %w", err)
	}

	if t.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				client.Close()
				return nil, fmt.Errorf("SMTP STARTTLS failed: %w", err)
			}
		}
	}

	if t.cfg.Username != "" && t.cfg.Password != "" {
		auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, fmt.Errorf("SMTP auth failed: %w", err)
		}
	}
	return client, nil
}

func (t *Transport) send(client *smtp.Client, to []string, body []byte) error {
	if err := client.Mail(t.cfg.From); err != nil {
		return fmt.Errorf("SMTP MAIL command failed: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("SMTP RCPT %s failed: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA command failed: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("SMTP message not accepted: %w", err)
	}
	return client.Quit()
}

// buildMessage renders the RFC 5322 message. The boundary is a parameter so tests get stable output.
func (t *Transport) buildMessage(msg mail.Message, boundary string) ([]byte, error) {
	text, err := t.converter.ConvertString(msg.HTML)
	if err != nil {
		return nil, fmt.Errorf("converting digest to text: %w", err)
	}

	var parts bytes.Buffer
	mw := multipart.NewWriter(&parts)
	if err := mw.SetBoundary(boundary); err != nil {
		return nil, fmt.Errorf("invalid MIME boundary: %w", err)
	}
	if err := writePart(mw, "text/plain; charset=UTF-8", text); err != nil {
		return nil, err
	}
	if err := writePart(mw, "text/html; charset=UTF-8", msg.HTML); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing MIME message: %w", err)
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "From: %s\r\n", t.cfg.From)
	fmt.Fprintf(&out, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&out, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&out, "Date: %s\r\n", t.now().Format(time.RFC1123Z))
	out.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&out, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())
	out.Write(parts.Bytes())
	return out.Bytes(), nil
}

func writePart(mw *multipart.Writer, contentType, content string) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType)
	header.Set("Content-Transfer-Encoding", "quoted-printable")
	pw, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("creating %s part: %w", contentType, err)
	}
	qp := quotedprintable.NewWriter(pw)
	if _, err := qp.Write([]byte(content)); err != nil {
		return fmt.Errorf("writing %s part: %w", contentType, err)
	}
	return qp.Close()
}
