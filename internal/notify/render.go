// AngelaMos | 2026
// render.go

package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type orderView struct {
	OrderEvent
	ShortID string
}

// ReportView is what the daily report email shows above the attachment.
type ReportView struct {
	Title           string
	NoActivity      bool
	Message         string
	OrderCount      int
	TotalAmount     string
	AverageTicket   string
	CancelledCount  int
	CancelledAmount string
}

// RenderOrderEvent returns the subject and HTML body for an order event.
func RenderOrderEvent(e OrderEvent) (string, string, error) {
	view := orderView{OrderEvent: e, ShortID: shortID(e.OrderID)}

	name, subject := "order_status", fmt.Sprintf("Order #%s is now %s", view.ShortID, e.Status)
	if e.Type == EventCorrectionRequired {
		name, subject = "correction", fmt.Sprintf("Order #%s needs a correction", view.ShortID)
	}

	body, err := execute(name, view)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

func RenderReport(v ReportView) (string, error) {
	return execute("report", v)
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
