package reporter

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"strconv"
	"time"

	"go-job-watcher/internal/config"

	"github.com/cockroachdb/errors"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

const smtpTimeout = 15 * time.Second

// EmailNotifier sends the batch as one HTML email over SMTP with STARTTLS.
type EmailNotifier struct {
	host     string
	port     int
	user     string
	password string
	from     string
	to       string

	tlsConfig *tls.Config
	timeout   time.Duration
	now       func() time.Time
}

func NewEmailNotifier(cfg config.Config) *EmailNotifier {
	return &EmailNotifier{
		host:      cfg.SMTP.Host,
		port:      cfg.SMTP.Port,
		user:      cfg.SMTP.User,
		password:  cfg.SMTP.Password,
		from:      cfg.SMTP.From,
		to:        cfg.SMTP.To,
		tlsConfig: &tls.Config{ServerName: cfg.SMTP.Host, MinVersion: tls.VersionTLS12},
		timeout:   smtpTimeout,
		now:       time.Now,
	}
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Configured() bool {
	return e.user != "" && e.password != ""
}

func (e *EmailNotifier) Send(ctx context.Context, batch Batch) Outcome {
	if !e.Configured() {
		return failed(e.Name(), ErrNotConfigured)
	}
	if e.to == "" {
		return failed(e.Name(), errors.Wrap(ErrNotConfigured, "email: no recipient (EMAIL_TO)"))
	}

	msg, err := e.buildMessage(Subject(batch), EmailHTML(batch))
	if err != nil {
		return failed(e.Name(), err)
	}
	if err := e.deliver(ctx, msg); err != nil {
		return failed(e.Name(), err)
	}
	return sent(e.Name())
}

func (e *EmailNotifier) buildMessage(subject, body string) ([]byte, error) {
	var h mail.Header
	h.SetDate(e.now())
	h.SetAddressList("From", []*mail.Address{{Address: e.from}})
	h.SetAddressList("To", []*mail.Address{{Address: e.to}})
	h.SetSubject(subject)
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	if err := h.GenerateMessageID(); err != nil {
		return nil, errors.Wrap(err, "email: message id")
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, errors.Wrap(err, "email: create writer")
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, errors.Wrap(err, "email: write body")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "email: close writer")
	}
	return buf.Bytes(), nil
}

// deliver runs one SMTP session: STARTTLS, AUTH PLAIN, one recipient, QUIT.
// Every command is bounded by e.timeout and the whole session by ctx.
func (e *EmailNotifier) deliver(ctx context.Context, msg []byte) error {
	addr := net.JoinHostPort(e.host, strconv.Itoa(e.port))

	dialer := &net.Dialer{Timeout: e.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "email: dial %s", addr)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c := smtp.NewClient(conn)
	defer c.Close()
	c.CommandTimeout = e.timeout
	c.SubmissionTimeout = e.timeout

	if err := c.StartTLS(e.tlsConfig); err != nil {
		return errors.Wrap(err, "email: starttls")
	}
	if err := c.Auth(sasl.NewPlainClient("", e.user, e.password)); err != nil {
		return errors.Wrap(err, "email: login")
	}
	if err := c.SendMail(e.from, []string{e.to}, bytes.NewReader(msg)); err != nil {
		return errors.Wrap(err, "email: send")
	}
	if err := c.Quit(); err != nil {
		return errors.Wrap(err, "email: quit")
	}
	return nil
}
