package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/futsalhub/platform/internal/guard"
)

// --- mocks ---

type mockSNS struct{ mock.Mock }

func (m *mockSNS) CreatePlatformEndpoint(ctx context.Context, in *sns.CreatePlatformEndpointInput, _ ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error) {
	args := m.Called(ctx, aws.ToString(in.Token))
	if out, _ := args.Get(0).(*sns.CreatePlatformEndpointOutput); out != nil {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSNS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	if out, _ := args.Get(0).(*sns.PublishOutput); out != nil {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPusher struct{ mock.Mock }

func (m *mockPusher) Send(ctx context.Context, p Push) error {
	return m.Called(ctx, p).Error(0)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

const appARN = "arn:aws:sns:us-east-1:000000000000:app/GCM/futsal"

func endpointOut(arn string) *sns.CreatePlatformEndpointOutput {
	return &sns.CreatePlatformEndpointOutput{EndpointArn: aws.String(arn)}
}

func TestSNSPusher_SendCachesEndpoint(t *testing.T) {
	client := &mockSNS{}
	client.On("CreatePlatformEndpoint", mock.Anything, "tok-1").Return(endpointOut("arn:ep:1"), nil).Once()
	client.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.TargetArn) == "arn:ep:1" && aws.ToString(in.MessageStructure) == "json"
	})).Return(&sns.PublishOutput{}, nil).Twice()

	p := NewSNSPusher(client, appARN, discard())
	require.NoError(t, p.Send(context.Background(), Push{Token: "tok-1", Title: "Goal", Body: "1-0"}))
	require.NoError(t, p.Send(context.Background(), Push{Token: "tok-1", Title: "Goal", Body: "2-0"}))

	client.AssertExpectations(t)
}

func TestSNSPusher_DisabledEndpointIsInvalidToken(t *testing.T) {
	client := &mockSNS{}
	client.On("CreatePlatformEndpoint", mock.Anything, "tok-dead").Return(endpointOut("arn:ep:dead"), nil).Twice()
	client.On("Publish", mock.Anything, mock.Anything).
		Return(nil, &types.EndpointDisabledException{Message: aws.String("Endpoint is disabled")})

	p := NewSNSPusher(client, appARN, discard())
	err := p.Send(context.Background(), Push{Token: "tok-dead", Title: "Goal"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// The cached endpoint is dropped, so the next send re-registers.
	err = p.Send(context.Background(), Push{Token: "tok-dead", Title: "Goal"})
	assert.ErrorIs(t, err, ErrInvalidToken)
	client.AssertExpectations(t)
}

func TestSNSPusher_RejectedTokenOnRegister(t *testing.T) {
	client := &mockSNS{}
	client.On("CreatePlatformEndpoint", mock.Anything, "garbage").
		Return(nil, &types.InvalidParameterException{Message: aws.String("Invalid parameter: Token")})

	p := NewSNSPusher(client, appARN, discard())
	err := p.Send(context.Background(), Push{Token: "garbage"})
	assert.ErrorIs(t, err, ErrInvalidToken)
	client.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestSNSPusher_ExistingEndpointIsReused(t *testing.T) {
	const existing = "arn:aws:sns:us-east-1:000000000000:endpoint/GCM/futsal/abc-123"
	client := &mockSNS{}
	client.On("CreatePlatformEndpoint", mock.Anything, "tok-known").
		Return(nil, &types.InvalidParameterException{Message: aws.String(
			"Invalid parameter: Token Reason: Endpoint " + existing + " already exists with the same Token, but different attributes.",
		)}).Once()
	client.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.TargetArn) == existing
	})).Return(&sns.PublishOutput{}, nil).Twice()

	p := NewSNSPusher(client, appARN, discard())
	require.NoError(t, p.Send(context.Background(), Push{Token: "tok-known", Title: "Goal"}))
	require.NoError(t, p.Send(context.Background(), Push{Token: "tok-known", Title: "Goal"}))
	client.AssertExpectations(t)
}

func TestSNSPusher_InvalidParameterIsNotAlwaysInvalidToken(t *testing.T) {
	t.Run("register", func(t *testing.T) {
		client := &mockSNS{}
		client.On("CreatePlatformEndpoint", mock.Anything, "tok").
			Return(nil, &types.InvalidParameterException{Message: aws.String("Invalid parameter: PlatformApplicationArn")})

		err := NewSNSPusher(client, appARN, discard()).Send(context.Background(), Push{Token: "tok"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("publish", func(t *testing.T) {
		client := &mockSNS{}
		client.On("CreatePlatformEndpoint", mock.Anything, "tok").Return(endpointOut("arn:ep"), nil).Once()
		client.On("Publish", mock.Anything, mock.Anything).
			Return(nil, &types.InvalidParameterException{Message: aws.String("Invalid parameter: Message Structure - No default entry in JSON message body")})

		p := NewSNSPusher(client, appARN, discard())
		err := p.Send(context.Background(), Push{Token: "tok", Silent: true})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidToken)

		// The endpoint stays cached.
		_ = p.Send(context.Background(), Push{Token: "tok", Silent: true})
		client.AssertExpectations(t)
	})
}

func TestSNSPusher_TransientErrorIsNotInvalidToken(t *testing.T) {
	client := &mockSNS{}
	client.On("CreatePlatformEndpoint", mock.Anything, "tok").Return(endpointOut("arn:ep"), nil)
	client.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	p := NewSNSPusher(client, appARN, discard())
	err := p.Send(context.Background(), Push{Token: "tok"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestBuildMessage(t *testing.T) {
	t.Run("alert", func(t *testing.T) {
		raw, err := buildMessage(Push{Title: "GOAL!", Body: "Lions 1-0 Tigers", Data: map[string]string{"match_id": "m1"}})
		require.NoError(t, err)

		var env map[string]string
		require.NoError(t, json.Unmarshal([]byte(raw), &env))
		assert.Equal(t, "Lions 1-0 Tigers", env["default"])
		assert.Contains(t, env["APNS"], `"alert"`)
		assert.Contains(t, env["APNS"], `"match_id":"m1"`)
		assert.Contains(t, env["GCM"], `"notification"`)
	})

	t.Run("silent", func(t *testing.T) {
		raw, err := buildMessage(Push{Silent: true, Data: map[string]string{"minute": "12"}})
		require.NoError(t, err)

		var env map[string]string
		require.NoError(t, json.Unmarshal([]byte(raw), &env))
		assert.Contains(t, env["APNS"], `"content-available":1`)
		assert.NotContains(t, env["APNS"], `"alert"`)
		assert.NotContains(t, env["GCM"], `"notification"`)
		assert.Contains(t, env["GCM"], `"minute":"12"`)
		assert.JSONEq(t, `{"minute":"12"}`, env["default"])
	})
}

func TestBreakerPusher(t *testing.T) {
	t.Run("transient failures open the circuit", func(t *testing.T) {
		next := &mockPusher{}
		next.On("Send", mock.Anything, mock.Anything).Return(errors.New("timeout")).Times(3)

		bp := NewBreakerPusher(next, guard.NewCircuitBreaker(3, time.Minute), "sns")
		for i := 0; i < 3; i++ {
			assert.Error(t, bp.Send(context.Background(), Push{Token: "t"}))
		}

		err := bp.Send(context.Background(), Push{Token: "t"})
		assert.ErrorIs(t, err, ErrCircuitOpen)
		next.AssertNumberOfCalls(t, "Send", 3)
	})

	t.Run("invalid tokens do not count", func(t *testing.T) {
		next := &mockPusher{}
		next.On("Send", mock.Anything, mock.Anything).Return(ErrInvalidToken)

		breaker := guard.NewCircuitBreaker(2, time.Minute)
		bp := NewBreakerPusher(next, breaker, "sns")
		for i := 0; i < 5; i++ {
			assert.ErrorIs(t, bp.Send(context.Background(), Push{Token: "t"}), ErrInvalidToken)
		}
		assert.Equal(t, guard.CircuitClosed, breaker.State("sns"))
	})
}

func TestLogPusher(t *testing.T) {
	assert.NoError(t, NewLogPusher(discard()).Send(context.Background(), Push{Token: "abcdefghij"}))
	assert.Equal(t, "efghij", TokenSuffix("abcdefghij"))
	assert.Equal(t, "abc", TokenSuffix("abc"))
}
