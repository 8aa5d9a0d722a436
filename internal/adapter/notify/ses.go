package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/cockroachdb/errors"
	"github.com/cwygoda/jobwatch/internal/domain"
	"go.uber.org/zap"
)

// SESAPI is the subset of the SES client used for delivery.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// NewSESClient loads the default AWS configuration for region.
func NewSESClient(ctx context.Context, region string) (*ses.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return ses.NewFromConfig(cfg), nil
}

// SESNotifier emails notifications through Amazon SES.
type SESNotifier struct {
	client SESAPI
	from   string
	log    *zap.SugaredLogger
}

// NewSESNotifier creates a notifier sending from the given address.
func NewSESNotifier(client SESAPI, from string, log *zap.SugaredLogger) *SESNotifier {
	return &SESNotifier{client: client, from: from, log: log}
}

func (n *SESNotifier) SendNewJobAlert(ctx context.Context, email string, jobs []domain.Job) bool {
	msg, err := alertMessage(jobs)
	if err != nil {
		n.log.Errorw("render job alert", "error", err)
		return false
	}
	return n.send(ctx, email, msg)
}

func (n *SESNotifier) SendApplicationNotification(ctx context.Context, email string, app domain.Application, status domain.ApplicationStatus) bool {
	msg, err := applicationMessage(app, status)
	if err != nil {
		n.log.Errorw("render application notification", "error", err)
		return false
	}
	return n.send(ctx, email, msg)
}

func (n *SESNotifier) send(ctx context.Context, to string, msg message) bool {
	out, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(n.from),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		n.log.Warnw("email delivery failed", "to", to, "subject", msg.Subject, "error", err)
		return false
	}
	n.log.Debugw("email sent", "to", to, "messageId", aws.ToString(out.MessageId))
	return true
}
