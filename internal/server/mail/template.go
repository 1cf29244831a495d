package mail

import (
	"bytes"
	"html/template"
)

const VerificationSubject = "Confirm your registration"

var verificationTemplate = template.Must(template.New("verify").Parse(
	`<button style="background-color: lightgreen; border-radius: 4px;">
  <a style="display: block; text-decoration: none; margin: 2vh 4vw; font-weight: 700; font-size: 20px;" target="_blank" href="{{.}}">
    Click to confirm your registration
  </a>
</button>`))

// VerificationMessage renders the registration confirmation email pointing
// at link.
func VerificationMessage(to, link string) (Message, error) {
	var buf bytes.Buffer
	if err := verificationTemplate.Execute(&buf, link); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: VerificationSubject, HTML: buf.String()}, nil
}
