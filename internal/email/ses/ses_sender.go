package ses

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"claimlens/internal/domain"
	"claimlens/internal/port"
)

type sesSender struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
	frontendURL string
}

// NewSESSender creates a new SES-backed EmailSender.
func NewSESSender(region, fromAddress, fromName, frontendURL string) (port.EmailSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	client := sesv2.NewFromConfig(cfg)
	return &sesSender{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
		frontendURL: frontendURL,
	}, nil
}

func (s *sesSender) SendReviewRequested(ctx context.Context, to string, doc *domain.Document, reasons []string) error {
	reviewURL := fmt.Sprintf("%s/review/%s", s.frontendURL, doc.ID)

	subject := fmt.Sprintf("Document awaiting review: %s", doc.OriginalFilename)
	htmlBody := buildReviewRequestedHTML(doc.OriginalFilename, reviewURL, reasons)
	textBody := fmt.Sprintf("The document %s could not be auto-approved (%s).\n\nReview it here:\n%s\n\nClaimLens Team",
		doc.OriginalFilename, strings.Join(reasons, ", "), reviewURL)

	return s.send(ctx, to, subject, htmlBody, textBody)
}

func (s *sesSender) SendProcessingFailed(ctx context.Context, to string, doc *domain.Document, message string) error {
	docURL := fmt.Sprintf("%s/documents/%s", s.frontendURL, doc.ID)

	subject := fmt.Sprintf("Document processing failed: %s", doc.OriginalFilename)
	htmlBody := buildProcessingFailedHTML(doc.OriginalFilename, docURL, message)
	textBody := fmt.Sprintf("Processing of %s failed:\n%s\n\nDetails:\n%s\n\nClaimLens Team",
		doc.OriginalFilename, message, docURL)

	return s.send(ctx, to, subject, htmlBody, textBody)
}

func (s *sesSender) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

func buildReviewRequestedHTML(filename, reviewURL string, reasons []string) string {
	items := make([]string, len(reasons))
	for i, r := range reasons {
		items[i] = fmt.Sprintf("<li>%s</li>", r)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Document awaiting review</h2>
  <p>The document <strong>%s</strong> could not be auto-approved:</p>
  <ul style="color: #666;">%s</ul>
  <p style="text-align: center; margin: 30px 0;">
    <a href="%s" style="background-color: #4F46E5; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Open Review</a>
  </p>
  <p>Or copy and paste this link into your browser:</p>
  <p style="word-break: break-all; color: #666;">%s</p>
  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px;">ClaimLens - Claims Document Processing</p>
</body>
</html>`, filename, strings.Join(items, ""), reviewURL, reviewURL)
}

func buildProcessingFailedHTML(filename, docURL, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Document processing failed</h2>
  <p>Processing of <strong>%s</strong> failed with the following error:</p>
  <p style="color: #B91C1C; background-color: #FEF2F2; padding: 12px; border-radius: 6px;">%s</p>
  <p style="text-align: center; margin: 30px 0;">
    <a href="%s" style="background-color: #4F46E5; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">View Document</a>
  </p>
  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px;">ClaimLens - Claims Document Processing</p>
</body>
</html>`, filename, message, docURL)
}
