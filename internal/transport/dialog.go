package transport

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"kitchen-print-router/internal/domain"
	"kitchen-print-router/internal/logger"
)

// Surface is the interactive print dialog the last tier hands the ticket to.
type Surface interface {
	Present(ctx context.Context, deviceID string, page []byte) error
}

// DialogTransport is tier 3: render the ticket as HTML and hand it to an
// operator-facing print dialog. Once the dialog is invoked the delivery
// counts as succeeded; the operator owns the outcome from there, so a
// surface error is logged but not surfaced.
type DialogTransport struct {
	surface Surface
	lg      *logger.Logger
}

func NewDialogTransport(surface Surface, lg *logger.Logger) *DialogTransport {
	return &DialogTransport{surface: surface, lg: lg}
}

func (t *DialogTransport) Name() string { return "dialog" }

func (t *DialogTransport) Attempt(ctx context.Context, req Request) error {
	page, err := RenderHTML(req.Descriptor)
	if err != nil {
		return fmt.Errorf("render fallback ticket: %w", err)
	}
	if err := t.surface.Present(ctx, req.Device.ID, page); err != nil {
		t.lg.Warn("dialog_surface_error", map[string]any{
			"device_id": req.Device.ID,
			"order_id":  req.OrderID,
			"error":     err.Error(),
		})
	}
	return nil
}

var ticketTmpl = template.Must(template.New("ticket").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.StationName}} {{.OrderNumber}}</title></head>
<body>
<h1>{{.StationName}}</h1>
<h2>#{{.OrderNumber}}{{if ne .Priority "normal"}} ({{.Priority}}){{end}}</h2>
<p>{{.OrderType}}{{if .TableLabel}} &mdash; table {{.TableLabel}}{{end}} &mdash; {{.Timestamp.Format "15:04"}}</p>
{{if .AllergyWarnings}}<div style="border:2px solid red;padding:4px">
<strong>ALLERGY</strong>
<ul>{{range .AllergyWarnings}}<li>{{.}}</li>{{end}}</ul>
</div>{{end}}
<ul>
{{range .Items}}<li>{{.Quantity}}&times; {{.Name}}
{{if .Modifiers}}<ul>{{range .Modifiers}}<li>{{if .IsRemoval}}no{{else}}add{{end}} {{.Name}}</li>{{end}}</ul>{{end}}
{{if .Notes}}<em>{{.Notes}}</em>{{end}}</li>
{{end}}</ul>
</body></html>
`))

// RenderHTML produces the human-readable rendition used by the fallback tier.
func RenderHTML(d domain.TicketDescriptor) ([]byte, error) {
	var b bytes.Buffer
	if err := ticketTmpl.Execute(&b, d); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// SpoolSurface writes fallback pages into a directory watched by the POS
// front end, which pops the print dialog for the operator.
type SpoolSurface struct {
	dir string
}

func NewSpoolSurface(dir string) *SpoolSurface { return &SpoolSurface{dir: dir} }

func (s *SpoolSurface) Present(_ context.Context, deviceID string, page []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("%s-%s.html", sanitize(deviceID), uuid.NewString())
	return os.WriteFile(filepath.Join(s.dir, name), page, 0o644)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' {
			return '_'
		}
		return r
	}, s)
}
