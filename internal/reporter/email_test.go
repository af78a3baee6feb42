package reporter

import (
	"bufio"
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"go-job-watcher/internal/config"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emailConfig(host string, port int) config.Config {
	cfg := config.Defaults()
	cfg.SMTP.Host = host
	cfg.SMTP.Port = port
	cfg.SMTP.User = "watcher@example.com"
	cfg.SMTP.Password = "secret"
	cfg.SMTP.From = "watcher@example.com"
	cfg.SMTP.To = "me@example.com"
	return cfg
}

func TestEmailNotifier_BuildMessage(t *testing.T) {
	n := NewEmailNotifier(emailConfig("smtp.example.com", 587))
	n.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

	raw, err := n.buildMessage(Subject(sampleBatch()), EmailHTML(sampleBatch()))
	require.NoError(t, err)

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "2 New Job(s) Matching Your Keywords", subject)

	from, err := mr.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "watcher@example.com", from[0].Address)

	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "me@example.com", to[0].Address)

	date, err := mr.Header.Date()
	require.NoError(t, err)
	assert.True(t, date.Equal(n.now()))

	part, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	assert.Equal(t, EmailHTML(sampleBatch()), string(body))
}

func TestEmailNotifier_NotConfigured(t *testing.T) {
	cfg := emailConfig("smtp.example.com", 587)
	cfg.SMTP.Password = ""

	n := NewEmailNotifier(cfg)
	assert.False(t, n.Configured())

	out := n.Send(context.Background(), sampleBatch())
	assert.False(t, out.Sent)
	assert.ErrorIs(t, out.Err, ErrNotConfigured)
}

func TestEmailNotifier_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	out := NewEmailNotifier(emailConfig("127.0.0.1", addr.Port)).Send(context.Background(), sampleBatch())
	assert.False(t, out.Sent)
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "email: dial")
}

// A server that never offers STARTTLS must not receive credentials.
func TestEmailNotifier_RequiresStartTLS(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	commands := make(chan string, 16)
	go serveSMTPWithoutTLS(ln, commands)

	addr := ln.Addr().(*net.TCPAddr)
	out := NewEmailNotifier(emailConfig("127.0.0.1", addr.Port)).Send(context.Background(), sampleBatch())
	assert.False(t, out.Sent)
	require.Error(t, out.Err)

	_ = ln.Close()
	for cmd := range commands {
		assert.False(t, strings.HasPrefix(strings.ToUpper(cmd), "AUTH"), "credentials sent in clear: %q", cmd)
	}
}

func serveSMTPWithoutTLS(ln net.Listener, commands chan<- string) {
	defer close(commands)

	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	r := bufio.NewReader(conn)
	_, _ = io.WriteString(conn, "220 localhost ESMTP test\r\n")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimSpace(line)
		commands <- cmd

		switch verb := strings.ToUpper(strings.SplitN(cmd, " ", 2)[0]); verb {
		case "EHLO":
			_, _ = io.WriteString(conn, "250-localhost\r\n250 PIPELINING\r\n")
		case "QUIT":
			_, _ = io.WriteString(conn, "221 bye\r\n")
			return
		default:
			_, _ = io.WriteString(conn, "502 not implemented\r\n")
		}
	}
}

func TestEmailNotifier_MissingRecipient(t *testing.T) {
	cfg := emailConfig("smtp.example.com", 587)
	cfg.SMTP.To = ""

	n := NewEmailNotifier(cfg)
	assert.True(t, n.Configured())

	out := n.Send(context.Background(), sampleBatch())
	assert.False(t, out.Sent)
	assert.ErrorIs(t, out.Err, ErrNotConfigured)
	assert.Contains(t, out.Err.Error(), "no recipient")
}

// A server that greets and then goes silent must not hold the pass.
func TestEmailNotifier_StalledServerTimesOut(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = io.WriteString(conn, "220 localhost ESMTP test\r\n")
		_, _ = io.Copy(io.Discard, conn)
	}()

	n := NewEmailNotifier(emailConfig("127.0.0.1", ln.Addr().(*net.TCPAddr).Port))
	n.timeout = 300 * time.Millisecond

	start := time.Now()
	out := n.Send(context.Background(), sampleBatch())

	assert.False(t, out.Sent)
	assert.Error(t, out.Err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestEmailNotifier_StalledServerHonoursContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = io.Copy(io.Discard, conn)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	out := NewEmailNotifier(emailConfig("127.0.0.1", ln.Addr().(*net.TCPAddr).Port)).Send(ctx, sampleBatch())

	assert.False(t, out.Sent)
	assert.Error(t, out.Err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestEmailNotifier_SendsOverStartTLS(t *testing.T) {
	be := &smtpBackend{}
	srv := smtp.NewServer(be)
	srv.Domain = "localhost"
	srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{selfSignedCert(t)}}
	srv.ReadTimeout = 5 * time.Second
	srv.WriteTimeout = 5 * time.Second

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })

	n := NewEmailNotifier(emailConfig("127.0.0.1", ln.Addr().(*net.TCPAddr).Port))
	n.tlsConfig = &tls.Config{InsecureSkipVerify: true}

	batch := sampleBatch()
	out := n.Send(context.Background(), batch)
	require.True(t, out.Sent, "unexpected error: %v", out.Err)
	assert.Equal(t, "email", out.Notifier)

	be.mu.Lock()
	defer be.mu.Unlock()
	assert.True(t, be.tls, "mail must only be accepted after STARTTLS")
	assert.Equal(t, "watcher@example.com", be.username)
	assert.Equal(t, "secret", be.password)
	assert.Equal(t, "watcher@example.com", be.from)
	assert.Equal(t, []string{"me@example.com"}, be.rcpts)

	mr, err := mail.CreateReader(bytes.NewReader(be.data))
	require.NoError(t, err)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, Subject(batch), subject)

	part, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	assert.Equal(t, EmailHTML(batch), string(body))
}

// smtpBackend records the single session it serves.
type smtpBackend struct {
	mu       sync.Mutex
	tls      bool
	username string
	password string
	from     string
	rcpts    []string
	data     []byte
}

func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{be: b, conn: c}, nil
}

type smtpSession struct {
	be   *smtpBackend
	conn *smtp.Conn
}

func (s *smtpSession) AuthMechanisms() []string { return []string{sasl.Plain} }

func (s *smtpSession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		s.be.mu.Lock()
		defer s.be.mu.Unlock()
		s.be.username = username
		s.be.password = password
		if username != "watcher@example.com" || password != "secret" {
			return smtp.ErrAuthFailed
		}
		return nil
	}), nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	_, isTLS := s.conn.TLS()
	s.be.mu.Lock()
	defer s.be.mu.Unlock()
	s.be.tls = isTLS
	s.be.from = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.be.mu.Lock()
	defer s.be.mu.Unlock()
	s.be.rcpts = append(s.be.rcpts, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.be.mu.Lock()
	defer s.be.mu.Unlock()
	s.be.data = data
	return nil
}

func (s *smtpSession) Reset() {}

func (s *smtpSession) Logout() error { return nil }

func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1)},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}
