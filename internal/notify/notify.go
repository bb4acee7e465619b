// Package notify composes member mail-outs. Delivery belongs to an external
// collaborator behind the Sender interface; the default sender only logs.
package notify

import (
	"context"
	"fmt"

	"github.com/memberd/memberd/internal/models"
	log "github.com/sirupsen/logrus"
)

// Message is a composed mail-out addressed to a group's members.
type Message struct {
	From    string   // "<Group name> <slug@domain>".
	To      string   // The group list address.
	BCC     []string // Member addresses.
	Subject string
	Body    string
	HTML    bool
}

// Sender delivers composed messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Compose builds the mail-out for a group. emails comes from the membership
// store's MemberEmails.
func Compose(group *models.Group, domain, subject, body string, html bool, emails []string) Message {
	return Message{
		From:    fmt.Sprintf("%s <%s@%s>", group.Name, group.Slug, domain),
		To:      fmt.Sprintf("list-%s@%s", group.Slug, domain),
		BCC:     emails,
		Subject: subject,
		Body:    body,
		HTML:    html,
	}
}

// LogSender records messages in the log instead of delivering them.
type LogSender struct{}

// Send logs the composed message.
func (LogSender) Send(_ context.Context, msg Message) error {
	log.WithFields(log.Fields{
		"from":       msg.From,
		"to":         msg.To,
		"recipients": len(msg.BCC),
		"subject":    msg.Subject,
	}).Info("member mail-out composed")
	return nil
}
