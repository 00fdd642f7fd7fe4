package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/akumi07/RoleMaster21/internal/config"
	"github.com/akumi07/RoleMaster21/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// OTPMessage is a one-time code addressed to the approving admin
type OTPMessage struct {
	To           string
	Code         string
	PendingEmail string
	ExpiresAt    time.Time
}

// Mailer defines the interface for sending one-time codes
type Mailer interface {
	SendOTP(ctx context.Context, msg OTPMessage) error
}

// NewMailer builds the transport selected by MAIL_TRANSPORT
func NewMailer(cfg config.MailConfig, log *slog.Logger) (Mailer, error) {
	client := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Transport {
	case "ses":
		return NewSESMailer(cfg.AWSRegion, cfg.FromAddress, cfg.Subject, log)
	case "http":
		return NewHTTPMailer(client, cfg.APIURL, cfg.APIKey, cfg.FromAddress, cfg.Subject, log), nil
	case "template":
		return NewTemplateMailer(client, cfg.APIURL, cfg.ServiceID, cfg.TemplateID, cfg.APIKey, log), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
}

func otpText(msg OTPMessage) string {
	return fmt.Sprintf(`Your OTP code is: %s

It was requested to add %s and expires at %s.
If you did not expect this request, you can ignore this email.
`, msg.Code, msg.PendingEmail, msg.ExpiresAt.UTC().Format(time.RFC1123))
}

func otpHTML(msg OTPMessage) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333;">
    <p>Your OTP code is:</p>
    <p style="font-size: 24px; font-weight: bold; letter-spacing: 4px;">%s</p>
    <p>It was requested to add <strong>%s</strong> and expires at %s.</p>
    <p style="color: #666; font-size: 12px;">If you did not expect this request, you can ignore this email.</p>
</body>
</html>
`, html.EscapeString(msg.Code), html.EscapeString(msg.PendingEmail), msg.ExpiresAt.UTC().Format(time.RFC1123))
}

// sesAPI is the subset of the SES client used for sending
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends one-time codes using AWS SES
type SESMailer struct {
	client      sesAPI
	fromAddress string
	subject     string
	logger      *slog.Logger
}

// NewSESMailer creates a new AWS SES mailer
func NewSESMailer(region, fromAddress, subject string, logger *slog.Logger) (*SESMailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESMailer{
		client:      ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		subject:     subject,
		logger:      logger,
	}, nil
}

func (m *SESMailer) SendOTP(ctx context.Context, msg OTPMessage) error {
	input := &ses.SendEmailInput{
		Source: aws.String(m.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(m.subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(otpHTML(msg)),
				},
				Text: &types.Content{
					Data: aws.String(otpText(msg)),
				},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		m.logger.Error("failed to send OTP email via SES",
			slog.String("email", logger.MaskEmail(msg.To)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("OTP email sent",
		slog.String("email", logger.MaskEmail(msg.To)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// HTTPMailer posts one-time codes to a bearer-token email API
type HTTPMailer struct {
	client      *http.Client
	url         string
	apiKey      string
	fromAddress string
	subject     string
	logger      *slog.Logger
}

func NewHTTPMailer(client *http.Client, url, apiKey, fromAddress, subject string, logger *slog.Logger) *HTTPMailer {
	return &HTTPMailer{
		client:      client,
		url:         url,
		apiKey:      apiKey,
		fromAddress: fromAddress,
		subject:     subject,
		logger:      logger,
	}
}

type httpMailRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

func (m *HTTPMailer) SendOTP(ctx context.Context, msg OTPMessage) error {
	body := httpMailRequest{
		From:    m.fromAddress,
		To:      msg.To,
		Subject: m.subject,
		Text:    otpText(msg),
	}

	headers := map[string]string{"Authorization": "Bearer " + m.apiKey}
	if err := postJSON(ctx, m.client, m.url, headers, body); err != nil {
		m.logger.Error("failed to send OTP email via HTTP API",
			slog.String("email", logger.MaskEmail(msg.To)),
			slog.Any("error", err))
		return err
	}

	m.logger.Info("OTP email sent", slog.String("email", logger.MaskEmail(msg.To)))
	return nil
}

// TemplateMailer sends one-time codes through a hosted template service
type TemplateMailer struct {
	client     *http.Client
	url        string
	serviceID  string
	templateID string
	publicKey  string
	logger     *slog.Logger
}

func NewTemplateMailer(client *http.Client, url, serviceID, templateID, publicKey string, logger *slog.Logger) *TemplateMailer {
	return &TemplateMailer{
		client:     client,
		url:        url,
		serviceID:  serviceID,
		templateID: templateID,
		publicKey:  publicKey,
		logger:     logger,
	}
}

type templateMailRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

func (m *TemplateMailer) SendOTP(ctx context.Context, msg OTPMessage) error {
	body := templateMailRequest{
		ServiceID:  m.serviceID,
		TemplateID: m.templateID,
		UserID:     m.publicKey,
		TemplateParams: map[string]string{
			"admin_email": msg.To,
			"otp":         msg.Code,
		},
	}

	if err := postJSON(ctx, m.client, m.url, nil, body); err != nil {
		m.logger.Error("failed to send OTP email via template service",
			slog.String("email", logger.MaskEmail(msg.To)),
			slog.Any("error", err))
		return err
	}

	m.logger.Info("OTP email sent", slog.String("email", logger.MaskEmail(msg.To)))
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail API returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	return nil
}
