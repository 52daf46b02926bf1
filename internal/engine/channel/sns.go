// internal/engine/channel/sns.go
package channel

import (
	"context"
	"fmt"

	stderrors "school-notify/internal/common/errors"
	"school-notify/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSService is the slice of the SNS client the adapter uses, extracted for mocking.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSMSAdapter delivers sms through AWS SNS.
type SNSSMSAdapter struct {
	client   SNSService
	senderID string
	logger   logger.Logger
}

func NewSNSSMSAdapter(ctx context.Context, region, senderID string, log logger.Logger) (*SNSSMSAdapter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SNSSMSAdapter{
		client:   sns.NewFromConfig(awsCfg),
		senderID: senderID,
		logger:   log.WithFields(map[string]interface{}{"adapter": "sns-sms"}),
	}, nil
}

// NewSNSSMSAdapterWithClient wires a prebuilt client; tests use this.
func NewSNSSMSAdapterWithClient(client SNSService, senderID string, log logger.Logger) *SNSSMSAdapter {
	return &SNSSMSAdapter{
		client:   client,
		senderID: senderID,
		logger:   log.WithFields(map[string]interface{}{"adapter": "sns-sms"}),
	}
}

func (a *SNSSMSAdapter) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return stderrors.NewInvalidInputError("sms message has no destination number")
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(msg.To),
		Message:     aws.String(msg.Body),
	}
	if a.senderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(a.senderID),
			},
		}
	}

	if _, err := a.client.Publish(ctx, input); err != nil {
		return stderrors.NewTransportFailureError("sms", err)
	}

	a.logger.Debug("sms accepted by SNS", map[string]interface{}{"to": msg.To})
	return nil
}

// UnconfiguredSMSAdapter stands in when no sms provider is configured. It
// reports the failure without attempting transport, so the attempt is still
// audited in the ledger.
type UnconfiguredSMSAdapter struct{}

func (UnconfiguredSMSAdapter) Send(ctx context.Context, msg Message) error {
	return stderrors.NewChannelUnavailableError("sms", "no sms provider configured")
}
