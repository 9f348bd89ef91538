// Package notify delivers download links to testers by email.
package notify

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// Message is a rendered download-link email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type linkData struct {
	AppName     string
	DownloadURL string
}

var textBody = texttemplate.Must(texttemplate.New("text").Parse(strings.TrimSpace(`
Your build of {{.AppName}} is ready.

Install it on your iOS device from this link:
{{.DownloadURL}}

IMPORTANT: open this link in Safari on your iPhone or iPad.
It will not work from other apps such as Gmail or Chrome.

---
This message was generated automatically. Please do not reply.
`)))

var htmlBody = htmltemplate.Must(htmltemplate.New("html").Parse(strings.TrimSpace(`
<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Install {{.AppName}}</title>
</head>
<body style="font-family: -apple-system, Helvetica, Arial, sans-serif;
  line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto;">
<h1>Your app is ready</h1>
<p>The build of <strong>{{.AppName}}</strong> finished.
You can now install it on your iOS device.</p>
<p style="text-align: center; margin: 30px 0;">
<a href="{{.DownloadURL}}"
  style="background: #667eea; color: white; padding: 15px 40px;
  border-radius: 8px; text-decoration: none;">Install app</a>
</p>
<div style="background: #fff3cd; border: 1px solid #ffc107;
  border-radius: 8px; padding: 15px;">
<strong>Important:</strong> open this link in Safari on your iPhone or iPad.
It will not work from other apps such as Gmail or Chrome.
</div>
<p style="font-size: 14px; color: #666;">
If the button does not work, paste this link into Safari:<br>
<a href="{{.DownloadURL}}">{{.DownloadURL}}</a>
</p>
<p style="font-size: 12px; color: #999;">
This message was generated automatically. Please do not reply.
</p>
</body>
</html>
`)))

// ComposeDownloadLink renders the download-link email for a recipient.
func ComposeDownloadLink(recipient, appName, downloadURL string) (Message, error) {
	data := linkData{AppName: appName, DownloadURL: downloadURL}

	var text bytes.Buffer
	if err := textBody.Execute(&text, data); err != nil {
		return Message{}, err
	}
	var html bytes.Buffer
	if err := htmlBody.Execute(&html, data); err != nil {
		return Message{}, err
	}

	return Message{
		To:      recipient,
		Subject: "Your install link for " + appName,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
