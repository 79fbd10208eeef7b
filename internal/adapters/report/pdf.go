package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	fontFamily      = "goregular"
	defaultFontSize = 12
)

// Renderer turns a Document into PDF bytes.
type Renderer struct {
	fontSize float64
}

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithFontSize sets the font size in points.
func WithFontSize(size float64) Option {
	return func(r *Renderer) {
		if size > 0 {
			r.fontSize = size
		}
	}
}

// NewRenderer creates a Renderer using the embedded Go Regular font.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{fontSize: defaultFontSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes doc to w.
func (r *Renderer) Render(ctx context.Context, w io.Writer, doc Document) error {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: gopdf.Rect{W: PageWidth, H: PageHeight}})
	pdf.SetInfo(gopdf.PdfInfo{Title: doc.Title, Creator: "gradebook"})
	if err := pdf.AddTTFFontData(fontFamily, goregular.TTF); err != nil {
		return fmt.Errorf("load font: %w", err)
	}

	page := -1
	for _, c := range doc.Commands {
		if err := ctx.Err(); err != nil {
			return err
		}
		for page < c.Page {
			pdf.AddPage()
			page++
			if err := pdf.SetFont(fontFamily, "", r.fontSize); err != nil {
				return fmt.Errorf("set font: %w", err)
			}
		}
		// gopdf measures y from the top edge and places the top of the cell there.
		pdf.SetXY(c.X, PageHeight-c.Y-r.fontSize)
		if err := pdf.Cell(nil, c.Text); err != nil {
			return fmt.Errorf("draw %q: %w", c.Text, err)
		}
	}
	if page < 0 {
		pdf.AddPage()
	}

	if err := pdf.Write(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// Bytes renders doc into memory.
func (r *Renderer) Bytes(ctx context.Context, doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(ctx, &buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile renders doc to path.
func (r *Renderer) WriteFile(ctx context.Context, path string, doc Document) error {
	data, err := r.Bytes(ctx, doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644) //nolint:gosec // reports are meant to be shared
}
