package notification

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/pkg/errors"
)

type templateData struct {
	Link      string
	ExpiresIn string
}

type emailTemplate struct {
	subject string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

var verificationTemplate = emailTemplate{
	subject: "Verify your email",
	text: texttemplate.Must(texttemplate.New("verification.txt").Parse(
		`Welcome!

Please confirm your email address by opening the link below:

{{.Link}}

If you did not create an account, you can ignore this email.
`)),
	html: htmltemplate.Must(htmltemplate.New("verification.html").Parse(
		`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<h2>Welcome!</h2>
	<p>Please confirm your email address by clicking the link below:</p>
	<p><a href="{{.Link}}">Verify email</a></p>
	<p style="word-break: break-all;">{{.Link}}</p>
	<p style="font-size: 12px; color: #666;">If you did not create an account, you can ignore this email.</p>
</body>
</html>
`)),
}

var passwordResetTemplate = emailTemplate{
	subject: "Password reset",
	text: texttemplate.Must(texttemplate.New("reset.txt").Parse(
		`We received a request to reset your password.

Open the link below to choose a new one:

{{.Link}}

This link will expire in {{.ExpiresIn}}.

If you did not request a password reset, you can ignore this email.
`)),
	html: htmltemplate.Must(htmltemplate.New("reset.html").Parse(
		`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<h2>Password reset</h2>
	<p>We received a request to reset your password. Click the link below to choose a new one:</p>
	<p><a href="{{.Link}}">Reset password</a></p>
	<p style="word-break: break-all;">{{.Link}}</p>
	<p>This link will expire in {{.ExpiresIn}}.</p>
	<p style="font-size: 12px; color: #666;">If you did not request a password reset, you can ignore this email.</p>
</body>
</html>
`)),
}

func (t emailTemplate) render(kind Kind, to string, data templateData) (*Email, error) {
	var text, html bytes.Buffer
	if err := t.text.Execute(&text, data); err != nil {
		return nil, errors.Wrapf(err, "failed to render %s text body", kind)
	}
	if err := t.html.Execute(&html, data); err != nil {
		return nil, errors.Wrapf(err, "failed to render %s html body", kind)
	}

	return &Email{
		Kind:    kind,
		To:      to,
		Subject: t.subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
