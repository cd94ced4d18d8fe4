// Package mailer queues and delivers transactional notification emails.
// Delivery is best-effort: the triggering request never waits on it and never
// observes its failures.
package mailer

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Message is one queued unit of work.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Transport delivers a single message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// SESTransport delivers mail through AWS SES.
type SESTransport struct {
	client *ses.Client
	from   string
}

// NewSESTransport builds an SES-backed transport. Region and from address are
// both required; callers treat a nil transport as the disabled state.
func NewSESTransport(ctx context.Context, region, from string) (*SESTransport, error) {
	if region == "" || from == "" {
		return nil, errors.New("mailer: region and from address are required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SESTransport{client: ses.NewFromConfig(cfg), from: from}, nil
}

func (t *SESTransport) Send(ctx context.Context, msg Message) error {
	input := &ses.SendEmailInput{
		Source:      aws.String(t.from),
		Destination: &types.Destination{ToAddresses: msg.To},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTML)},
				Text: &types.Content{Data: aws.String(msg.Text)},
			},
		},
	}
	_, err := t.client.SendEmail(ctx, input)
	return err
}
