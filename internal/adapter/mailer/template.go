// internal/adapter/mailer/template.go

package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"trendscope/internal/domain/trend"
)

// DigestItems is how many trends and suggestions a digest shows
const DigestItems = 3

// Message is a rendered email
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// Digest is the data rendered into a daily report email
type Digest struct {
	Date         time.Time
	Summary      string
	Trends       []trend.Trend
	Suggestions  []trend.Suggestion
	DashboardURL string
}

type digestView struct {
	Date         string
	Summary      string
	Trends       []trend.Trend
	Suggestions  []trend.Suggestion
	DashboardURL string
}

var funcs = map[string]interface{}{
	"inc": func(i int) int { return i + 1 },
}

var htmlDigest = htmltemplate.Must(htmltemplate.New("digest.html").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>TrendScope Daily Report</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0; background-color: #f8fafc; }
.container { max-width: 600px; margin: 0 auto; background-color: white; }
.header { background: linear-gradient(135deg, #2563eb 0%, #3b82f6 100%); color: white; padding: 40px 30px; text-align: center; }
.content { padding: 30px; }
.summary { background-color: #f1f5f9; padding: 20px; border-radius: 8px; margin-bottom: 30px; }
.item { background-color: #f8fafc; border: 1px solid #e2e8f0; border-radius: 8px; padding: 20px; margin-bottom: 15px; }
.source-tag { background-color: #dbeafe; color: #1d4ed8; padding: 4px 8px; border-radius: 4px; font-size: 12px; margin-right: 6px; }
.impact-high { background-color: #dcfce7; color: #166534; }
.impact-medium { background-color: #fef3c7; color: #92400e; }
.impact-low { background-color: #e0f2fe; color: #0369a1; }
.meta { font-size: 12px; color: #64748b; }
.footer { background-color: #f1f5f9; padding: 20px 30px; text-align: center; border-top: 1px solid #e2e8f0; font-size: 14px; color: #64748b; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>TrendScope Daily Report</h1>
    <p>Your AI-powered cultural intelligence briefing for {{.Date}}</p>
  </div>
  <div class="content">
    <div class="summary"><p>{{.Summary}}</p></div>
    <div class="section">
      <h2>Top Cultural Trends</h2>
      {{range $i, $t := .Trends}}
      <div class="item">
        <h3>{{inc $i}}. {{$t.Title}}</h3>
        <div class="meta">Score: {{$t.TrendScore}}/100</div>
        <p>{{$t.Description}}</p>
        <div>{{range $t.Sources}}<span class="source-tag">{{.Platform}}: {{.Mentions}}</span>{{end}}</div>
      </div>
      {{end}}
    </div>
    <div class="section">
      <h2>AI-Generated Brand Opportunities</h2>
      {{range .Suggestions}}
      <div class="item">
        <h3>{{.Title}}</h3>
        <span class="impact-{{.Impact}}">{{.Impact}} Impact</span>
        <p>{{.Description}}</p>
        <div class="meta">Type: {{.Type}} • Effort: {{.Effort}}</div>
      </div>
      {{end}}
    </div>
  </div>
  <div class="footer">
    <p>Powered by TrendScope AI</p>
    {{if .DashboardURL}}<p><a href="{{.DashboardURL}}">View Full Dashboard</a></p>{{end}}
  </div>
</div>
</body>
</html>
`))

var textDigest = texttemplate.Must(texttemplate.New("digest.txt").Funcs(funcs).Parse(`TrendScope Daily Report - {{.Date}}

{{.Summary}}

TOP CULTURAL TRENDS:
{{range $i, $t := .Trends}}
{{inc $i}}. {{$t.Title}} (Score: {{$t.TrendScore}}/100)
{{$t.Description}}
{{end}}
AI-GENERATED BRAND OPPORTUNITIES:
{{range .Suggestions}}
- {{.Title}} ({{.Impact}} impact, {{.Effort}} effort)
  {{.Description}}
{{end}}
--
Powered by TrendScope AI
{{if .DashboardURL}}View the full dashboard at {{.DashboardURL}}
{{end}}`))

// Render builds the digest email from the leading trends and suggestions
func Render(d Digest) (Message, error) {
	if d.Date.IsZero() {
		d.Date = time.Now()
	}

	view := digestView{
		Date:         d.Date.Format("Monday, January 2, 2006"),
		Summary:      d.Summary,
		Trends:       d.Trends,
		Suggestions:  d.Suggestions,
		DashboardURL: d.DashboardURL,
	}
	if len(view.Trends) > DigestItems {
		view.Trends = view.Trends[:DigestItems]
	}
	if len(view.Suggestions) > DigestItems {
		view.Suggestions = view.Suggestions[:DigestItems]
	}

	var html, text bytes.Buffer
	if err := htmlDigest.Execute(&html, view); err != nil {
		return Message{}, fmt.Errorf("error rendering html digest: %w", err)
	}
	if err := textDigest.Execute(&text, view); err != nil {
		return Message{}, fmt.Errorf("error rendering text digest: %w", err)
	}

	return Message{
		Subject: fmt.Sprintf("🔥 Daily Cultural Trends Report - %s", view.Date),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
