package followup

import (
	"context"
	"fmt"

	awsclients "chainspace-intake/internal/common/aws"
	"chainspace-intake/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailConfirmation sends the applicant a copy of the success message.
type EmailConfirmation struct {
	client       awsclients.SESAPI
	from         string
	enabled      bool
	responseDays int
}

func NewEmailConfirmation(client awsclients.SESAPI, from string, enabled bool, responseDays int) *EmailConfirmation {
	return &EmailConfirmation{client: client, from: from, enabled: enabled, responseDays: responseDays}
}

func (e *EmailConfirmation) Action() string { return ActionConfirmationEmail }

func (e *EmailConfirmation) Run(ctx context.Context, row *models.ApplicationRow) (string, error) {
	if !e.enabled || e.client == nil {
		return "", ErrDisabled
	}
	if row.Email == "" {
		return "", fmt.Errorf("application %s has no e-mail address", row.ApplicationID)
	}

	data := map[string]interface{}{
		"applicationId": row.ApplicationID,
		"fullName":      row.FullName,
		"responseDays":  e.responseDays,
	}

	out, err := e.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{row.Email}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(render(confirmationTemplate.subject, data))},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(render(confirmationTemplate.body, data))},
			},
		},
		Source: aws.String(e.from),
	})
	if err != nil {
		return "", fmt.Errorf("ses send: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
