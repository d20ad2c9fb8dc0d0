package followup

import (
	"context"
	"fmt"
	"time"

	awsclients "chainspace-intake/internal/common/aws"
	"chainspace-intake/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// StaffAlert publishes a short summary of each new application to the
// admissions topic.
type StaffAlert struct {
	client   awsclients.SNSAPI
	topicARN string
	enabled  bool
}

func NewStaffAlert(client awsclients.SNSAPI, topicARN string, enabled bool) *StaffAlert {
	return &StaffAlert{client: client, topicARN: topicARN, enabled: enabled}
}

func (s *StaffAlert) Action() string { return ActionStaffAlert }

func (s *StaffAlert) Run(ctx context.Context, row *models.ApplicationRow) (string, error) {
	if !s.enabled || s.client == nil || s.topicARN == "" {
		return "", ErrDisabled
	}

	data := map[string]interface{}{
		"applicationId":         row.ApplicationID,
		"fullName":              row.FullName,
		"email":                 row.Email,
		"currentLocation":       row.CurrentLocation,
		"distanceFromUyo":       row.DistanceFromUyo,
		"canAttendInPerson":     row.CanAttendInPerson,
		"programmingExperience": row.ProgrammingExperience,
		"blockchainFamiliarity": row.BlockchainFamiliarity,
		"howDidYouHear":         row.HowDidYouHear,
		"submittedAt":           row.SubmittedAt.Format(time.RFC3339),
	}

	attrs := map[string]types.MessageAttributeValue{}
	for name, value := range map[string]string{
		"applicationId":         row.ApplicationID,
		"programmingExperience": row.ProgrammingExperience,
	} {
		// SNS rejects empty attribute values
		if value == "" {
			continue
		}
		attrs[name] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(value),
		}
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Subject:           aws.String(render(staffAlertTemplate.subject, data)),
		Message:           aws.String(render(staffAlertTemplate.body, data)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return "", fmt.Errorf("sns publish: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
