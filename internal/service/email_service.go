package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// EmailSender delivers invitation emails. Satisfied by EmailService;
// tests substitute a recording fake.
type EmailSender interface {
	SendInvitationEmail(ctx context.Context, toEmail, familyName, familyCode, inviteCode, inviterName string) error
}

// EmailService sends invitation emails via Amazon SES
type EmailService struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	enabled   bool
}

// NewEmailService creates a new email service. When fromEmail is empty
// the service is disabled and silently skips every send.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName string) (*EmailService, error) {
	if fromEmail == "" {
		slog.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	slog.Info("email service enabled", "from", fromEmail, "region", awsRegion)
	return &EmailService{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendInvitationEmail sends a family invitation with the join code and
// the one-time invite code
func (s *EmailService) SendInvitationEmail(ctx context.Context, toEmail, familyName, familyCode, inviteCode, inviterName string) error {
	if !s.enabled {
		slog.Info("skipping email send (service disabled)", "to", toEmail)
		return nil
	}

	subject := fmt.Sprintf("%s invited you to join %s", inviterName, familyName)
	textBody := fmt.Sprintf(
		"%s has invited you to join the %s household.\n\n"+
			"Family code: %s\n"+
			"Invitation code: %s\n\n"+
			"Open the app and enter the invitation code to join.\n",
		inviterName, familyName, familyCode, inviteCode,
	)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(textBody)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send invitation email: %w", err)
	}

	slog.Info("invitation email sent", "to", toEmail)
	return nil
}
