package channel

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "school-notify/internal/common/errors"
	"school-notify/internal/common/logger"
)

type mockSESClient struct {
	sendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.sendEmailFunc(ctx, params, optFns...)
}

type mockSNSClient struct {
	publishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *mockSNSClient) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.publishFunc(ctx, params, optFns...)
}

func TestSESEmailAdapter_Send(t *testing.T) {
	var captured *ses.SendEmailInput
	client := &mockSESClient{
		sendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			captured = params
			return &ses.SendEmailOutput{}, nil
		},
	}
	adapter := NewSESEmailAdapterWithClient(client, "noreply@school.example", logger.NewTestLogger(t))

	err := adapter.Send(context.Background(), Message{
		To:      "guardian@example.com",
		Subject: "Fee reminder",
		Body:    "A fee is due.",
	})
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, []string{"guardian@example.com"}, captured.Destination.ToAddresses)
	assert.Equal(t, "noreply@school.example", *captured.Source)
	assert.Equal(t, "Fee reminder", *captured.Message.Subject.Data)
}

func TestSESEmailAdapter_Send_TransportFailure(t *testing.T) {
	client := &mockSESClient{
		sendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	adapter := NewSESEmailAdapterWithClient(client, "noreply@school.example", logger.NewTestLogger(t))

	err := adapter.Send(context.Background(), Message{To: "guardian@example.com", Body: "x"})
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeTransportFailure, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestSESEmailAdapter_Send_EmptyDestination(t *testing.T) {
	adapter := NewSESEmailAdapterWithClient(&mockSESClient{}, "noreply@school.example", logger.NewTestLogger(t))

	err := adapter.Send(context.Background(), Message{Body: "x"})
	assert.Error(t, err)
}

func TestSNSSMSAdapter_Send(t *testing.T) {
	var captured *sns.PublishInput
	client := &mockSNSClient{
		publishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			captured = params
			return &sns.PublishOutput{}, nil
		},
	}
	adapter := NewSNSSMSAdapterWithClient(client, "SCHOOL", logger.NewTestLogger(t))

	err := adapter.Send(context.Background(), Message{To: "+911234567890", Body: "exam tomorrow"})
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "+911234567890", *captured.PhoneNumber)
	assert.Equal(t, "exam tomorrow", *captured.Message)
	require.Contains(t, captured.MessageAttributes, "AWS.SNS.SMS.SenderID")
	assert.Equal(t, "SCHOOL", *captured.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue)
}

func TestSNSSMSAdapter_Send_NoSenderID(t *testing.T) {
	var captured *sns.PublishInput
	client := &mockSNSClient{
		publishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			captured = params
			return &sns.PublishOutput{}, nil
		},
	}
	adapter := NewSNSSMSAdapterWithClient(client, "", logger.NewTestLogger(t))

	require.NoError(t, adapter.Send(context.Background(), Message{To: "+911234567890", Body: "x"}))
	assert.Empty(t, captured.MessageAttributes)
}

func TestSNSSMSAdapter_Send_TransportFailure(t *testing.T) {
	client := &mockSNSClient{
		publishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("invalid number")
		},
	}
	adapter := NewSNSSMSAdapterWithClient(client, "SCHOOL", logger.NewTestLogger(t))

	err := adapter.Send(context.Background(), Message{To: "+91000", Body: "x"})
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeTransportFailure, stdErr.Code)
}

func TestUnconfiguredSMSAdapter_Send(t *testing.T) {
	adapter := UnconfiguredSMSAdapter{}

	err := adapter.Send(context.Background(), Message{To: "+911234567890", Body: "x"})
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeChannelUnavailable, stdErr.Code)
	assert.Contains(t, stdErr.Message, "not configured")
}
