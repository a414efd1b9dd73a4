package mail

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"text/template"
)

// ConfirmationSubject is the subject of registration confirmation emails.
const ConfirmationSubject = "Confirm your registration"

const confirmationPath = "/api/v1/user/registration/confirm"

var confirmationBody = template.Must(template.New("confirmation").Parse(
	`Hello {{.FirstName}},

please confirm your registration by opening the link below:

{{.Link}}

If you did not sign up, ignore this message.
`))

// ConfirmationComposer renders registration confirmation emails.
type ConfirmationComposer struct {
	baseURL string
}

// NewConfirmationComposer builds links against baseURL (scheme and host, optional path prefix).
func NewConfirmationComposer(baseURL string) *ConfirmationComposer {
	return &ConfirmationComposer{baseURL: strings.TrimRight(baseURL, "/")}
}

// Link returns the confirmation URL for token.
func (c *ConfirmationComposer) Link(token string) string {
	return c.baseURL + confirmationPath + "?token=" + url.QueryEscape(token)
}

// Compose returns subject and body of the confirmation email.
func (c *ConfirmationComposer) Compose(firstName, token string) (string, string, error) {
	var buf bytes.Buffer
	err := confirmationBody.Execute(&buf, struct {
		FirstName string
		Link      string
	}{FirstName: firstName, Link: c.Link(token)})
	if err != nil {
		return "", "", fmt.Errorf("render confirmation: %w", err)
	}
	return ConfirmationSubject, buf.String(), nil
}
