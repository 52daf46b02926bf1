// internal/engine/channel/ses.go
package channel

import (
	"context"
	"fmt"

	stderrors "school-notify/internal/common/errors"
	"school-notify/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESService is the slice of the SES client the adapter uses, extracted for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESEmailAdapter delivers email through AWS SES.
type SESEmailAdapter struct {
	client    SESService
	fromEmail string
	logger    logger.Logger
}

func NewSESEmailAdapter(ctx context.Context, region, fromEmail string, log logger.Logger) (*SESEmailAdapter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SESEmailAdapter{
		client:    ses.NewFromConfig(awsCfg),
		fromEmail: fromEmail,
		logger:    log.WithFields(map[string]interface{}{"adapter": "ses-email"}),
	}, nil
}

// NewSESEmailAdapterWithClient wires a prebuilt client; tests use this.
func NewSESEmailAdapterWithClient(client SESService, fromEmail string, log logger.Logger) *SESEmailAdapter {
	return &SESEmailAdapter{
		client:    client,
		fromEmail: fromEmail,
		logger:    log.WithFields(map[string]interface{}{"adapter": "ses-email"}),
	}
}

func (a *SESEmailAdapter) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return stderrors.NewInvalidInputError("email message has no destination address")
	}

	_, err := a.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body)},
			},
		},
		Source: aws.String(a.fromEmail),
	})
	if err != nil {
		return stderrors.NewTransportFailureError("email", err)
	}

	a.logger.Debug("email accepted by SES", map[string]interface{}{"to": msg.To})
	return nil
}
