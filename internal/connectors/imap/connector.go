// Package imap feeds the inbox from an IMAP mailbox.
package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"supplymatch/internal/config"
	"supplymatch/internal/connectors"
)

type Connector struct {
	addr     string
	host     string
	secure   bool
	user     string
	password string
	markSeen bool
}

func NewConnector(cfg config.Config) (*Connector, error) {
	for _, req := range []struct{ name, value string }{
		{"IMAP_HOST", cfg.IMAPHost},
		{"IMAP_USER", cfg.IMAPUser},
		{"IMAP_PASSWORD", cfg.IMAPPassword},
	} {
		if err := cfg.Require(req.name, req.value); err != nil {
			return nil, err
		}
	}

	return &Connector{
		addr:     fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort),
		host:     cfg.IMAPHost,
		secure:   cfg.IMAPSecure,
		user:     cfg.IMAPUser,
		password: cfg.IMAPPassword,
		markSeen: cfg.IMAPMarkSeen,
	}, nil
}

// FetchInbox returns up to max unseen messages from mailbox label, oldest
// first. The go-imap v1 client cannot be interrupted, so ctx is only checked
// between commands.
func (c *Connector) FetchInbox(ctx context.Context, label string, max int) ([]connectors.Message, error) {
	client, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer client.Logout()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := client.Select(label, false); err != nil {
		return nil, fmt.Errorf("imap select %s: %w", label, err)
	}

	uids, err := unseenUIDs(client, max)
	if err != nil || len(uids) == 0 {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := fetchRaw(client, uids)
	if err != nil {
		return nil, err
	}

	if c.markSeen && len(out) > 0 {
		set := new(imap.SeqSet)
		set.AddNum(uids...)
		op := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := client.UidStore(set, op, []interface{}{imap.SeenFlag}, nil); err != nil {
			return nil, fmt.Errorf("imap mark seen: %w", err)
		}
	}
	return out, nil
}

func (c *Connector) dial() (*imapclient.Client, error) {
	var (
		client *imapclient.Client
		err    error
	)
	if c.secure {
		client, err = imapclient.DialTLS(c.addr, &tls.Config{ServerName: c.host})
	} else {
		client, err = imapclient.Dial(c.addr)
	}
	if err != nil {
		return nil, fmt.Errorf("imap dial %s: %w", c.addr, err)
	}
	if err := client.Login(c.user, c.password); err != nil {
		_ = client.Logout()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return client, nil
}

// unseenUIDs keeps the newest max UIDs.
func unseenUIDs(client *imapclient.Client, max int) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	if max > 0 && len(uids) > max {
		uids = uids[len(uids)-max:]
	}
	return uids, nil
}

func fetchRaw(client *imapclient.Client, uids []uint32) ([]connectors.Message, error) {
	set := new(imap.SeqSet)
	set.AddNum(uids...)

	// Peek leaves \Seen alone; marking is an explicit opt-in.
	section := &imap.BodySectionName{Peek: true}
	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- client.UidFetch(set, []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, imap.FetchUid, section.FetchItem()}, ch)
	}()

	var (
		out     []connectors.Message
		readErr error
	)
	for msg := range ch {
		if msg == nil || readErr != nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			readErr = err
			continue
		}
		out = append(out, toMessage(msg, raw))
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}
	return out, readErr
}

func toMessage(msg *imap.Message, raw []byte) connectors.Message {
	m := connectors.Message{
		Provider:   "imap",
		MessageID:  fmt.Sprintf("imap-%d", msg.Uid),
		ReceivedAt: msg.InternalDate.UTC(),
		Raw:        raw,
	}
	if msg.InternalDate.IsZero() {
		m.ReceivedAt = time.Now().UTC()
	}
	if env := msg.Envelope; env != nil {
		if env.MessageId != "" {
			m.MessageID = env.MessageId
		}
		m.Subject = env.Subject
		m.From = formatAddresses(env.From)
	}
	return m
}

func formatAddresses(addrs []*imap.Address) string {
	var parts []string
	for _, a := range addrs {
		if a == nil {
			continue
		}
		addr := a.Address()
		if a.PersonalName != "" {
			addr = a.PersonalName + " <" + addr + ">"
		}
		parts = append(parts, addr)
	}
	return strings.Join(parts, ", ")
}
