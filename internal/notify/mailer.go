package notify

import (
	"context"
	"fmt"
	htmltemplate "html/template"
	"log"
	"strings"
	texttemplate "text/template"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// sesAPI is the part of the SES client the mailer uses
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Mailer sends caregiver e-mails via Amazon SES
type Mailer struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// NewMailer creates a mailer. An empty fromEmail yields a disabled mailer.
func NewMailer(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*Mailer, error) {
	if fromEmail == "" {
		log.Println("Email notifications disabled: SES_FROM_EMAIL not configured")
		return &Mailer{enabled: false, debug: debug}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing mailer with AWS SES: region=%s from=%s", awsRegion, fromEmail)
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email notifications enabled: from=%s, region=%s", fromEmail, awsRegion)

	return &Mailer{
		client:     sesv2.NewFromConfig(cfg),
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
	}, nil
}

// IsEnabled returns whether e-mails are actually sent
func (m *Mailer) IsEnabled() bool {
	return m.enabled
}

// SendAchievementEmail tells a caregiver that their child unlocked an achievement
func (m *Mailer) SendAchievementEmail(ctx context.Context, toEmail, toName, achievementName, description string) error {
	if !m.enabled {
		if m.debug {
			log.Printf("[DEBUG] Skipping achievement email to %s (mailer disabled)", toEmail)
		}
		return nil
	}

	msg := achievementMessage{
		Name:        toName,
		Achievement: achievementName,
		Description: description,
		Link:        m.appBaseURL,
	}
	var htmlBody, textBody strings.Builder
	if err := achievementHTML.Execute(&htmlBody, msg); err != nil {
		return fmt.Errorf("failed to render achievement email: %w", err)
	}
	if err := achievementText.Execute(&textBody, msg); err != nil {
		return fmt.Errorf("failed to render achievement email: %w", err)
	}

	return m.sendEmail(ctx, toEmail, "New achievement: "+achievementName, htmlBody.String(), textBody.String())
}

type achievementMessage struct {
	Name        string
	Achievement string
	Description string
	Link        string
}

var achievementHTML = htmltemplate.Must(htmltemplate.New("achievement").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222;">
	<h2 style="color: #3aa655;">{{.Achievement}}</h2>
	<p>Hi {{.Name}},</p>
	<p>A new achievement was just unlocked in the daily routine: <strong>{{.Achievement}}</strong>.</p>
	{{if .Description}}<p>{{.Description}}</p>{{end}}
	{{if .Link}}<p><a href="{{.Link}}">Open the routine</a> to see every achievement.</p>{{end}}
	<p style="font-size: 12px; color: #777;">Sent automatically by Visual Routine.</p>
</body>
</html>
`))

var achievementText = texttemplate.Must(texttemplate.New("achievement").Parse(`Hi {{.Name}},

A new achievement was just unlocked in the daily routine: {{.Achievement}}.
{{if .Description}}{{.Description}}
{{end}}{{if .Link}}
Open the routine to see every achievement: {{.Link}}
{{end}}
Sent automatically by Visual Routine.
`))

func utf8Content(data string) *types.Content {
	return &types.Content{Data: aws.String(data), Charset: aws.String("UTF-8")}
}

// sendEmail delivers one message through SES
func (m *Mailer) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := m.fromEmail
	if m.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: utf8Content(subject),
				Body: &types.Body{
					Html: utf8Content(htmlBody),
					Text: utf8Content(textBody),
				},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if m.debug && result.MessageId != nil {
		log.Printf("[DEBUG] SES message ID: %s", *result.MessageId)
	}
	log.Printf("Achievement email sent to %s (%s)", toEmail, subject)
	return nil
}
