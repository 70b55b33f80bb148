package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSConfig configures the SNS mobile push client.
type SNSConfig struct {
	Region         string
	EndpointURL    string
	AccessKeyID    string
	SecretKey      string
	PlatformAppARN string
}

// SNSAPI is the subset of the SNS client used for mobile push.
type SNSAPI interface {
	CreatePlatformEndpoint(ctx context.Context, in *sns.CreatePlatformEndpointInput, optFns ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error)
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPusher sends pushes through SNS platform endpoints, one per device token.
type SNSPusher struct {
	client   SNSAPI
	appARN   string
	logger   *slog.Logger
	mu       sync.Mutex
	endpoint map[string]string // token -> endpoint ARN
}

// NewSNSClient builds an SNS client. When EndpointURL is set (LocalStack) all
// traffic goes to it.
func NewSNSClient(ctx context.Context, cfg SNSConfig) (*sns.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var clientOpts []func(*sns.Options)
	if cfg.EndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		})
	}
	return sns.NewFromConfig(awsCfg, clientOpts...), nil
}

// NewSNSPusher creates a pusher publishing to endpoints of one platform application.
func NewSNSPusher(client SNSAPI, platformAppARN string, logger *slog.Logger) *SNSPusher {
	return &SNSPusher{
		client:   client,
		appARN:   platformAppARN,
		logger:   logger,
		endpoint: make(map[string]string),
	}
}

// Send implements Pusher.
func (s *SNSPusher) Send(ctx context.Context, p Push) error {
	arn, err := s.endpointFor(ctx, p.Token)
	if err != nil {
		return err
	}

	msg, err := buildMessage(p)
	if err != nil {
		return fmt.Errorf("build push message: %w", err)
	}

	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        aws.String(arn),
		Message:          aws.String(msg),
		MessageStructure: aws.String("json"),
	})
	if err != nil {
		if isDisabledEndpoint(err) {
			s.forget(p.Token)
			return fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

func (s *SNSPusher) endpointFor(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	arn, ok := s.endpoint[token]
	s.mu.Unlock()
	if ok {
		return arn, nil
	}

	out, err := s.client.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(s.appARN),
		Token:                  aws.String(token),
	})
	switch {
	case err == nil:
		arn = aws.ToString(out.EndpointArn)
	case existingEndpoint(err) != "":
		arn = existingEndpoint(err)
		s.logger.Debug("reusing existing sns endpoint", "token_suffix", TokenSuffix(token))
	case isRejectedToken(err):
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	default:
		return "", fmt.Errorf("sns create endpoint: %w", err)
	}

	s.mu.Lock()
	s.endpoint[token] = arn
	s.mu.Unlock()
	return arn, nil
}

func (s *SNSPusher) forget(token string) {
	s.mu.Lock()
	delete(s.endpoint, token)
	s.mu.Unlock()
}

// existingEndpointARN matches SNS's "Endpoint <arn> already exists with the
// same Token, but different attributes" rejection.
var existingEndpointARN = regexp.MustCompile(`Endpoint (arn:\S+) already exists`)

func isDisabledEndpoint(err error) bool {
	var disabled *types.EndpointDisabledException
	return errors.As(err, &disabled)
}

// existingEndpoint returns the ARN of an endpoint already registered for the
// token, or "" when err is not that conflict.
func existingEndpoint(err error) string {
	var invalid *types.InvalidParameterException
	if !errors.As(err, &invalid) {
		return ""
	}
	m := existingEndpointARN.FindStringSubmatch(invalid.ErrorMessage())
	if m == nil {
		return ""
	}
	return m[1]
}

// isRejectedToken reports whether registration failed because the platform
// refused the token itself.
func isRejectedToken(err error) bool {
	if isDisabledEndpoint(err) {
		return true
	}
	var invalid *types.InvalidParameterException
	if !errors.As(err, &invalid) {
		return false
	}
	return strings.Contains(invalid.ErrorMessage(), "Invalid parameter: Token")
}

// buildMessage renders the per-platform JSON envelope SNS expects when
// MessageStructure is "json".
func buildMessage(p Push) (string, error) {
	var apns, fcm map[string]interface{}
	if p.Silent {
		apns = map[string]interface{}{"aps": map[string]interface{}{"content-available": 1}}
		fcm = map[string]interface{}{"data": p.Data, "priority": "normal"}
	} else {
		apns = map[string]interface{}{"aps": map[string]interface{}{
			"alert": map[string]string{"title": p.Title, "body": p.Body},
			"sound": "default",
		}}
		fcm = map[string]interface{}{
			"notification": map[string]string{"title": p.Title, "body": p.Body},
			"data":         p.Data,
			"priority":     "high",
		}
	}
	for k, v := range p.Data {
		apns[k] = v
	}

	apnsJSON, err := json.Marshal(apns)
	if err != nil {
		return "", err
	}
	fcmJSON, err := json.Marshal(fcm)
	if err != nil {
		return "", err
	}

	def := p.Body
	if def == "" {
		// SNS rejects a json-structured message with an empty default.
		raw, err := json.Marshal(p.Data)
		if err != nil {
			return "", err
		}
		def = string(raw)
	}

	out, err := json.Marshal(map[string]string{
		"default":      def,
		"APNS":         string(apnsJSON),
		"APNS_SANDBOX": string(apnsJSON),
		"GCM":          string(fcmJSON),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
