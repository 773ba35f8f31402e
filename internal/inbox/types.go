package inbox

import "time"

// Message is the part of an email that task capture cares about.
type Message struct {
	UID      uint32
	Subject  string
	From     string
	Date     time.Time
	TextBody string
}

// Settings describes the IMAP mailbox to read from.
type Settings struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
	Mailbox  string
}
