package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// IMAPClient wraps go-imap v2 for reading capture messages.
type IMAPClient struct {
	settings Settings
}

// NewIMAPClient creates a new IMAP client configuration.
func NewIMAPClient(settings Settings) *IMAPClient {
	if settings.Mailbox == "" {
		settings.Mailbox = "INBOX"
	}
	return &IMAPClient{settings: settings}
}

// connect establishes a connection to the IMAP server and authenticates.
// The caller is responsible for logging out.
func (c *IMAPClient) connect(_ context.Context) (*imapclient.Client, error) {
	addr := c.settings.Host + ":" + c.settings.Port

	var client *imapclient.Client
	var err error
	if c.settings.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.settings.Username, c.settings.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("IMAP login failed for %s: %w", c.settings.Username, err)
	}

	return client, nil
}

// FetchUnseen returns unread messages received since the given time,
// newest last, capped at limit. Bodies are fetched with Peek so the
// messages stay unread until MarkSeen is called.
func (c *IMAPClient) FetchUnseen(
	ctx context.Context, since time.Time, limit int,
) ([]Message, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(c.settings.Mailbox, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", c.settings.Mailbox, err)
	}

	criteria := &imap.SearchCriteria{
		Since:   since,
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var messages []Message
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		m := Message{UID: uint32(buf.UID)}
		if buf.Envelope != nil {
			m.Subject = buf.Envelope.Subject
			m.Date = buf.Envelope.Date
			if len(buf.Envelope.From) > 0 {
				m.From = buf.Envelope.From[0].Addr()
			}
		}
		if raw := buf.FindBodySection(bodySection); raw != nil {
			m.TextBody = textBody(raw)
		}
		messages = append(messages, m)
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching messages: %w", err)
	}

	return messages, nil
}

// MarkSeen flags the given messages as read so they are not captured
// twice.
func (c *IMAPClient) MarkSeen(ctx context.Context, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}

	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(c.settings.Mailbox, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", c.settings.Mailbox, err)
	}

	set := make([]imap.UID, len(uids))
	for i, uid := range uids {
		set[i] = imap.UID(uid)
	}

	storeCmd := client.Store(imap.UIDSetNum(set...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)

	return storeCmd.Close()
}
