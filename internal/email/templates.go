package email

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// Template keys.
const (
	TemplateOrderPlaced    = "order_placed"
	TemplateOrderApproved  = "order_approved"
	TemplateOrderRejected  = "order_rejected"
	TemplateOrderProgress  = "order_progress"
	TemplateOrderDelivered = "order_delivered"
)

// OrderInfo is everything a buyer notification can mention.
type OrderInfo struct {
	OrderID     string
	BuyerName   string
	BuyerEmail  string
	ProductName string
	Quantity    int
	Total       string
	Status      string
	Location    string
	Note        string
	TrackingURL string
	Date        string
}

// Reference is the short order code shown in subjects.
func (o *OrderInfo) Reference() string {
	if len(o.OrderID) > 8 {
		return strings.ToUpper(o.OrderID[:8])
	}
	return strings.ToUpper(o.OrderID)
}

func (o *OrderInfo) Greeting() string {
	if o.BuyerName != "" {
		return o.BuyerName
	}
	return "there"
}

type emailTemplate struct {
	Subject string
	HTML    string
	Text    string
}

var emailTemplates = map[string]emailTemplate{
	TemplateOrderPlaced: {
		Subject: "Order {{.Reference}} received",
		Text:    placedText,
		HTML:    placedHTML,
	},
	TemplateOrderApproved: {
		Subject: "Order {{.Reference}} approved",
		Text:    approvedText,
		HTML:    approvedHTML,
	},
	TemplateOrderRejected: {
		Subject: "Order {{.Reference}} was not accepted",
		Text:    rejectedText,
		HTML:    rejectedHTML,
	},
	TemplateOrderProgress: {
		Subject: "Order {{.Reference}}: {{.Status}}",
		Text:    progressText,
		HTML:    progressHTML,
	},
	TemplateOrderDelivered: {
		Subject: "Order {{.Reference}} delivered",
		Text:    deliveredText,
		HTML:    deliveredHTML,
	},
}

type Renderer struct {
	subjects *texttemplate.Template
	texts    *texttemplate.Template
	htmls    *htmltemplate.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		subjects: texttemplate.New("subjects"),
		texts:    texttemplate.New("texts"),
		htmls:    htmltemplate.New("htmls"),
	}
	for key, t := range emailTemplates {
		if _, err := r.subjects.New(key).Parse(t.Subject); err != nil {
			return nil, fmt.Errorf("failed to parse subject template %s: %w", key, err)
		}
		if _, err := r.texts.New(key).Parse(t.Text); err != nil {
			return nil, fmt.Errorf("failed to parse text template %s: %w", key, err)
		}
		if _, err := r.htmls.New(key).Parse(layoutHTML(t.HTML)); err != nil {
			return nil, fmt.Errorf("failed to parse HTML template %s: %w", key, err)
		}
	}
	return r, nil
}

func (r *Renderer) Render(_ context.Context, templateName string, data *OrderInfo) (*Email, error) {
	if data == nil {
		return nil, fmt.Errorf("order info is required")
	}
	if _, ok := emailTemplates[templateName]; !ok {
		return nil, fmt.Errorf("unknown email template: %s", templateName)
	}

	var subject, text, html bytes.Buffer
	if err := r.subjects.ExecuteTemplate(&subject, templateName, data); err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := r.texts.ExecuteTemplate(&text, templateName, data); err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}
	if err := r.htmls.ExecuteTemplate(&html, templateName, data); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}

	return &Email{
		To:      data.BuyerEmail,
		Subject: subject.String(),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// Send renders templateName and hands it to p. A nil provider sends nothing.
func (r *Renderer) Send(ctx context.Context, p Provider, templateName string, data *OrderInfo) error {
	if p == nil {
		return nil
	}
	msg, err := r.Render(ctx, templateName, data)
	if err != nil {
		return err
	}
	return p.SendEmail(ctx, msg)
}

func layoutHTML(body string) string {
	return `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #1f2937; max-width: 600px; margin: 0 auto; padding: 20px; }
    .card { background: #f9fafb; border: 1px solid #e5e7eb; border-radius: 8px; padding: 20px; }
    .muted { color: #6b7280; font-size: 14px; }
    .button { display: inline-block; background: #0f766e; color: white; padding: 10px 20px; text-decoration: none; border-radius: 6px; }
  </style>
</head>
<body>
  <div class="card">
` + body + `
  </div>
  <p class="muted">Order {{.Reference}} &middot; {{.ProductName}} x{{.Quantity}}</p>
</body>
</html>
`
}

const placedText = `Hi {{.Greeting}},

We received your order for {{.Quantity}} x {{.ProductName}} ({{.Total}}).
It is waiting for review by our production team.

{{if .TrackingURL}}Follow it here: {{.TrackingURL}}{{end}}
`

const placedHTML = `    <h2>Order received</h2>
    <p>Hi {{.Greeting}}, we received your order for <strong>{{.Quantity}} x {{.ProductName}}</strong> ({{.Total}}).</p>
    <p>It is waiting for review by our production team.</p>
    {{if .TrackingURL}}<p><a class="button" href="{{.TrackingURL}}">Follow your order</a></p>{{end}}`

const approvedText = `Hi {{.Greeting}},

Your order for {{.Quantity}} x {{.ProductName}} was approved on {{.Date}} and is queued for production.

{{if .TrackingURL}}Follow it here: {{.TrackingURL}}{{end}}
`

const approvedHTML = `    <h2>Order approved</h2>
    <p>Hi {{.Greeting}}, your order for <strong>{{.Quantity}} x {{.ProductName}}</strong> was approved on {{.Date}} and is queued for production.</p>
    {{if .TrackingURL}}<p><a class="button" href="{{.TrackingURL}}">Follow your order</a></p>{{end}}`

const rejectedText = `Hi {{.Greeting}},

We are sorry, your order for {{.Quantity}} x {{.ProductName}} could not be accepted.
Reply to this email if you would like to place a different order.
`

const rejectedHTML = `    <h2>Order not accepted</h2>
    <p>Hi {{.Greeting}}, we are sorry, your order for <strong>{{.Quantity}} x {{.ProductName}}</strong> could not be accepted.</p>
    <p>Reply to this email if you would like to place a different order.</p>`

const progressText = `Hi {{.Greeting}},

Your order moved to "{{.Status}}"{{if .Location}} at {{.Location}}{{end}} on {{.Date}}.
{{if .Note}}
Note from the team: {{.Note}}
{{end}}
{{if .TrackingURL}}Follow it here: {{.TrackingURL}}{{end}}
`

const progressHTML = `    <h2>{{.Status}}</h2>
    <p>Hi {{.Greeting}}, your order moved to <strong>{{.Status}}</strong>{{if .Location}} at {{.Location}}{{end}} on {{.Date}}.</p>
    {{if .Note}}<p class="muted">Note from the team: {{.Note}}</p>{{end}}
    {{if .TrackingURL}}<p><a class="button" href="{{.TrackingURL}}">Follow your order</a></p>{{end}}`

const deliveredText = `Hi {{.Greeting}},

Your order for {{.Quantity}} x {{.ProductName}} was delivered{{if .Location}} to {{.Location}}{{end}} on {{.Date}}.
Thank you for ordering with us.
`

const deliveredHTML = `    <h2>Delivered</h2>
    <p>Hi {{.Greeting}}, your order for <strong>{{.Quantity}} x {{.ProductName}}</strong> was delivered{{if .Location}} to {{.Location}}{{end}} on {{.Date}}.</p>
    <p>Thank you for ordering with us.</p>`
