package inbox

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"
)

// ParseMessage reads an RFC 5322 message (an .eml file) into a Message.
func ParseMessage(r io.Reader) (*Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading message: %w", err)
	}
	defer mr.Close()

	msg := &Message{}
	msg.Subject, _ = mr.Header.Subject()
	msg.Date, _ = mr.Header.Date()
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].Address
	}
	msg.TextBody = readTextParts(mr)

	return msg, nil
}

// textBody extracts the text/plain content of a raw message, falling back
// to the raw bytes when it cannot be parsed as MIME.
func textBody(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}
	defer mr.Close()
	return readTextParts(mr)
}

func readTextParts(mr *mail.Reader) string {
	var text strings.Builder
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if contentType != "" && !strings.HasPrefix(contentType, "text/plain") {
			continue
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		text.Write(body)
	}
	return text.String()
}

// listMarkers are the prefixes that turn a body line into its own task.
var listMarkers = []string{"- [ ] ", "[ ] ", "- ", "* ", "• "}

// BatchText turns captured messages into the free-text block accepted by
// the batch create endpoint: one task per line. Each subject becomes a
// task, and so does every bulleted line in the body. Quoted replies and
// signatures are skipped.
func BatchText(messages []Message) string {
	var lines []string
	seen := make(map[string]bool)
	add := func(line string) {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			return
		}
		seen[line] = true
		lines = append(lines, line)
	}

	for _, m := range messages {
		add(stripReplyPrefix(m.Subject))
		for _, raw := range strings.Split(m.TextBody, "\n") {
			line := strings.TrimSpace(raw)
			if line == "--" {
				break
			}
			if strings.HasPrefix(line, ">") {
				continue
			}
			for _, marker := range listMarkers {
				if strings.HasPrefix(line, marker) {
					add(strings.TrimPrefix(line, marker))
					break
				}
			}
		}
	}

	return strings.Join(lines, "\n")
}

func stripReplyPrefix(subject string) string {
	s := strings.TrimSpace(subject)
	for {
		lower := strings.ToLower(s)
		switch {
		case strings.HasPrefix(lower, "re:"), strings.HasPrefix(lower, "fw:"):
			s = strings.TrimSpace(s[3:])
		case strings.HasPrefix(lower, "fwd:"):
			s = strings.TrimSpace(s[4:])
		default:
			return s
		}
	}
}
