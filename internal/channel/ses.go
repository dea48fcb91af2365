package channel

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/clientloop/dispatch-engine/internal/domain"
)

// SenderIdentity is the per-tenant From identity used for outbound mail.
type SenderIdentity struct {
	FromName  string
	FromEmail string
}

// IdentityResolver looks up the sender identity configured for a tenant.
// ErrIdentityNotConfigured marks tenants that never finished mail setup.
type IdentityResolver interface {
	SenderIdentity(ctx context.Context, tenantID string) (SenderIdentity, error)
}

// ErrIdentityNotConfigured is returned by IdentityResolver implementations
// when a tenant has no sender identity on record.
var ErrIdentityNotConfigured = errors.New("sender identity not configured")

// SESTransport implements MailTransport over AWS SES (SDK v2) with
// per-tenant sender identity resolution.
type SESTransport struct {
	client     *sesv2.Client
	identities IdentityResolver
}

// NewSESTransport creates an SES mail transport. When accessKey/secretKey
// are empty the default AWS credential chain is used.
func NewSESTransport(ctx context.Context, accessKey, secretKey, region string, identities IdentityResolver) (*SESTransport, error) {
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SESTransport{
		client:     sesv2.NewFromConfig(cfg),
		identities: identities,
	}, nil
}

// SendEmail delivers one HTML email through SES using the tenant's sender
// identity.
func (t *SESTransport) SendEmail(ctx context.Context, tenantID, to, subject, htmlBody string) error {
	ident, err := t.identities.SenderIdentity(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrIdentityNotConfigured) {
			return NewError(domain.ChannelEmail, KindConfigurationMissing, err)
		}
		return NewError(domain.ChannelEmail, KindNetworkError, fmt.Errorf("resolve identity: %w", err))
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", ident.FromName, ident.FromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("tenant_id"), Value: aws.String(tenantID)},
		},
	}

	if _, err := t.client.SendEmail(ctx, input); err != nil {
		return NewError(domain.ChannelEmail, classifyTransportErr(err), err)
	}
	return nil
}

// classifyTransportErr separates "provider unreachable" (timeouts,
// connection errors) from "provider refused".
func classifyTransportErr(err error) Kind {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetworkError
	}
	return KindTransportRejected
}
