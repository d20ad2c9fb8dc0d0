package followup

import (
	"fmt"
	"strings"
)

type template struct {
	subject string
	body    string
}

var (
	confirmationTemplate = template{
		subject: "Your Chainspace application {{applicationId}}",
		body: "Hello {{fullName}},\n\n" +
			"Thank you for applying to the Chainspace bootcamp. Your application ID is {{applicationId}}.\n" +
			"We'll contact you within {{responseDays}} business days.\n\n" +
			"The Chainspace team",
	}
	staffAlertTemplate = template{
		subject: "New application {{applicationId}}",
		body: "Applicant: {{fullName}} <{{email}}>\n" +
			"Location: {{currentLocation}} ({{distanceFromUyo}})\n" +
			"In person: {{canAttendInPerson}}\n" +
			"Experience: {{programmingExperience}}, blockchain: {{blockchainFamiliarity}}\n" +
			"Heard via: {{howDidYouHear}}\n" +
			"Submitted: {{submittedAt}}",
	}
)

// render substitutes {{key}} placeholders and drops any left unresolved.
func render(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		value := ""
		if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}
