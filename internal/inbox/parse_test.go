package inbox

import (
	"strings"
	"testing"
)

const sampleEML = "From: Ana <ana@example.com>\r\n" +
	"To: me@example.com\r\n" +
	"Subject: Re: Groceries and errands\r\n" +
	"Date: Fri, 16 Oct 2026 08:30:00 +0000\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Things for this week:\r\n" +
	"- Buy oat milk\r\n" +
	"* Return library books\r\n" +
	"[ ] Call the plumber\r\n" +
	"> - quoted item\r\n" +
	"--\r\n" +
	"- signature line\r\n"

func TestParseMessage(t *testing.T) {
	msg, err := ParseMessage(strings.NewReader(sampleEML))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.Subject != "Re: Groceries and errands" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.From != "ana@example.com" {
		t.Errorf("From = %q", msg.From)
	}
	if !strings.Contains(msg.TextBody, "Buy oat milk") {
		t.Errorf("TextBody missing list item: %q", msg.TextBody)
	}
}

func TestBatchText(t *testing.T) {
	msg, err := ParseMessage(strings.NewReader(sampleEML))
	if err != nil {
		t.Fatal(err)
	}

	got := BatchText([]Message{*msg, {Subject: "Fwd: Buy oat milk"}})
	want := strings.Join([]string{
		"Groceries and errands",
		"Buy oat milk",
		"Return library books",
		"Call the plumber",
	}, "\n")
	if got != want {
		t.Errorf("BatchText =\n%s\nwant\n%s", got, want)
	}
}

func TestBatchTextEmpty(t *testing.T) {
	if got := BatchText(nil); got != "" {
		t.Errorf("BatchText(nil) = %q, want empty", got)
	}
}
