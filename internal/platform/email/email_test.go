package email

import (
	"context"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"

	"truckbooks/internal/platform/config"
)

func TestNewFallsBackToLogMailer(t *testing.T) {
	mailer := New(config.Config{EmailEnabled: true})
	if _, ok := mailer.(logMailer); !ok {
		t.Fatalf("expected log mailer without SMTP host, got %T", mailer)
	}
	if err := mailer.Send(context.Background(), Message{To: "b@example.com", Subject: "hi"}); err != nil {
		t.Fatalf("log mailer send failed: %v", err)
	}
	r, ok := New(config.Config{EmailEnabled: true, SMTPHost: "smtp.example.com", SMTPPort: 2525}).(*relay)
	if !ok {
		t.Fatal("expected relay when enabled with a host")
	}
	if r.settings.addr() != "smtp.example.com:2525" {
		t.Fatalf("unexpected relay address %q", r.settings.addr())
	}
}

func TestRelayRequiresRecipient(t *testing.T) {
	m := &relay{settings: Settings{Host: "127.0.0.1", Port: 1}}
	if err := m.Send(context.Background(), Message{To: "  "}); err != ErrNoRecipient {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
}

func TestComposePlainText(t *testing.T) {
	raw, err := Compose(Message{From: "pay@example.com", To: "ana@example.com", Subject: "Statement paid", Body: "Net pay: $812.50"})
	if err != nil {
		t.Fatal(err)
	}
	msg := string(raw)
	if !strings.HasPrefix(msg, "From: pay@example.com\r\nTo: ana@example.com\r\nSubject: Statement paid\r\n") {
		t.Fatalf("unexpected headers: %q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\nNet pay: $812.50") {
		t.Fatalf("expected blank line before body: %q", msg)
	}
}

func TestComposeWithAttachment(t *testing.T) {
	pdf := []byte("%PDF-1.3 statement")
	raw, err := Compose(Message{
		From:        "pay@example.com",
		To:          "ana@example.com",
		Subject:     "Statement paid",
		Body:        "See attached.",
		Attachments: []Attachment{{Name: "statement.pdf", ContentType: "application/pdf", Data: pdf}},
	})
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		t.Fatalf("message does not parse: %v", err)
	}
	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/mixed" {
		t.Fatalf("expected multipart/mixed, got %q %v", mediaType, err)
	}

	reader := multipart.NewReader(parsed.Body, params["boundary"])
	text, err := reader.NextPart()
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(text)
	if string(body) != "See attached." {
		t.Fatalf("unexpected text part %q", body)
	}

	attachment, err := reader.NextPart()
	if err != nil {
		t.Fatal(err)
	}
	if attachment.FileName() != "statement.pdf" {
		t.Fatalf("unexpected file name %q", attachment.FileName())
	}
	encoded, _ := io.ReadAll(attachment)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(encoded), "\r\n", ""))
	if err != nil || string(decoded) != string(pdf) {
		t.Fatalf("attachment did not round trip: %q %v", decoded, err)
	}
}
