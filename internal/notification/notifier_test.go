package notification

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"PcapSpectra/internal/config"
	"PcapSpectra/internal/model"

	"github.com/google/uuid"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestNotifier(sent *[]sentMail, fail error) *EmailNotifier {
	n := NewEmailNotifier(config.SMTPConfig{
		Host: "smtp.test", Port: 2525,
		From: "spectra@test", To: "a@test, b@test",
	}, config.Default().Analysis)
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*sent = append(*sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return fail
	}
	return n
}

func testCapture() *model.Capture {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return &model.Capture{
		ID:   uuid.New(),
		Name: "office.pcap",
		Result: &model.Result{
			PacketCount: 4,
			TotalBytes:  400,
			StartTime:   start,
			EndTime:     start.Add(time.Minute),
			Protocols:   []model.ProtocolStat{{Protocol: "DNS", PacketCount: 4, Bytes: 400, Percentage: 100}},
		},
	}
}

func TestEmailNotifier_Write(t *testing.T) {
	var sent []sentMail
	n := newTestNotifier(&sent, nil)

	if err := n.Write(context.Background(), testCapture()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(sent) != 1 {
		t.Fatalf("Expected 1 mail, got %d", len(sent))
	}
	m := sent[0]
	if m.addr != "smtp.test:2525" || m.from != "spectra@test" {
		t.Errorf("Unexpected envelope: %+v", m)
	}
	if len(m.to) != 2 || m.to[0] != "a@test" || m.to[1] != "b@test" {
		t.Errorf("Unexpected recipients: %q", m.to)
	}
	if !strings.Contains(m.msg, "Subject: Traffic report: office.pcap (4 packets)\r\n") {
		t.Errorf("Missing subject header in %q", m.msg)
	}
	if !strings.Contains(m.msg, "Content-Type: text/html") || !strings.Contains(m.msg, "<html") {
		t.Errorf("Expected an HTML body")
	}
}

func TestEmailNotifier_SendFailure(t *testing.T) {
	var sent []sentMail
	n := newTestNotifier(&sent, errors.New("connection refused"))
	if err := n.Write(context.Background(), testCapture()); err == nil {
		t.Fatal("Expected the send error to surface")
	}
}

func TestEmailNotifier_SubjectInjection(t *testing.T) {
	var sent []sentMail
	n := newTestNotifier(&sent, nil)
	if err := n.Send("hello\r\nBcc: evil@test", "body"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if strings.Contains(sent[0].msg, "\r\nBcc:") {
		t.Errorf("Subject line break leaked into headers: %q", sent[0].msg)
	}
}
