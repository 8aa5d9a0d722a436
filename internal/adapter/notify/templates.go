package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/cwygoda/jobwatch/internal/domain"
)

var alertTmpl = template.Must(template.New("alert").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px;">
<h2 style="color: #8b5cf6;">New Job Opportunities Found!</h2>
<p>We found {{len .}} new job(s) matching your criteria:</p>
{{range .}}<div style="border: 1px solid #e5e7eb; padding: 15px; margin: 10px 0; border-radius: 8px;">
<h4 style="margin: 0 0 10px 0;">{{.Title}}</h4>
<p style="margin: 5px 0;"><strong>Company:</strong> {{.Company}}</p>
<p style="margin: 5px 0;"><strong>Location:</strong> {{.Location}}</p>
<p style="margin: 5px 0;"><strong>Platform:</strong> {{.Platform}}</p>
<a href="{{.URL}}">View job</a>
</div>
{{end}}<p style="color: #6b7280; font-size: 12px; margin-top: 30px;">Sent by jobwatch</p>
</div>`))

var applicationTmpl = template.Must(template.New("application").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px;">
<h2 style="color: {{if .Success}}#10b981{{else}}#ef4444{{end}};">{{if .Success}}Application Submitted{{else}}Application Issue{{end}}</h2>
<p><strong>Position:</strong> {{.App.Title}}</p>
<p><strong>Company:</strong> {{.App.Company}}</p>
<p><strong>Location:</strong> {{.App.Location}}</p>
<p><strong>Platform:</strong> {{.App.Platform}}</p>
<p><strong>Time:</strong> {{.Time}}</p>
{{if .Success}}<p style="color: #10b981;">Your application has been submitted successfully!</p>{{else}}<p style="color: #ef4444;">There was an issue with your application. Please review manually.</p>{{end}}
<p style="color: #6b7280; font-size: 12px; margin-top: 30px;">Sent by jobwatch</p>
</div>`))

type message struct {
	Subject string
	HTML    string
	Text    string
}

func alertMessage(jobs []domain.Job) (message, error) {
	var html bytes.Buffer
	if err := alertTmpl.Execute(&html, jobs); err != nil {
		return message{}, err
	}
	var text strings.Builder
	fmt.Fprintf(&text, "We found %d new job(s) matching your criteria:\n\n", len(jobs))
	for _, j := range jobs {
		fmt.Fprintf(&text, "- %s at %s (%s, %s)\n  %s\n", j.Title, j.Company, j.Location, j.Platform, j.URL)
	}
	return message{
		Subject: fmt.Sprintf("%d New Job Opportunities Found", len(jobs)),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

func applicationMessage(app domain.Application, status domain.ApplicationStatus) (message, error) {
	success := status == domain.ApplicationSuccess
	var html bytes.Buffer
	err := applicationTmpl.Execute(&html, struct {
		App     domain.Application
		Success bool
		Time    string
	}{app, success, app.Timestamp.Format(time.RFC1123)})
	if err != nil {
		return message{}, err
	}

	subject := fmt.Sprintf("Application Issue: %s at %s", app.Title, app.Company)
	if success {
		subject = fmt.Sprintf("Successfully Applied: %s at %s", app.Title, app.Company)
	}
	text := fmt.Sprintf("%s\n\nPosition: %s\nCompany: %s\nLocation: %s\nPlatform: %s\nStatus: %s\n%s\n",
		subject, app.Title, app.Company, app.Location, app.Platform, status, app.Message)
	return message{Subject: subject, HTML: html.String(), Text: text}, nil
}
