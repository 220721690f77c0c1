// Package export renders components to static HTML once, without a
// live loop, and publishes the result to disk or to an S3 bucket.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fervo-ui/fervo/pkg/backend/memdom"
	"github.com/fervo-ui/fervo/pkg/render"
	"github.com/fervo-ui/fervo/pkg/runtime"
)

// Page pairs a component with its output path (e.g. "index.html").
type Page struct {
	Path      string
	Component runtime.ComponentFunc
	Title     string
}

// Publisher receives rendered pages.
type Publisher interface {
	Publish(ctx context.Context, path, contentType string, body io.Reader) error
}

// Exporter renders pages and hands them to a publisher.
type Exporter struct {
	renderer *render.Renderer
	logger   *slog.Logger
}

// New creates an Exporter. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		renderer: render.NewRenderer(render.RendererConfig{Pretty: true}),
		logger:   logger,
	}
}

// Export renders every page and publishes it. It stops at the first
// failure; pages already published stay published.
func (e *Exporter) Export(ctx context.Context, pub Publisher, pages []Page) error {
	for _, page := range pages {
		html, err := e.RenderPage(page)
		if err != nil {
			return fmt.Errorf("export: render %s: %w", page.Path, err)
		}
		if err := pub.Publish(ctx, page.Path, "text/html; charset=utf-8", bytes.NewReader(html)); err != nil {
			return fmt.Errorf("export: publish %s: %w", page.Path, err)
		}
		e.logger.Info("page exported", "path", page.Path, "bytes", len(html))
	}
	return nil
}

// RenderPage runs one mount cycle for the page's component and wraps
// the serialized tree in an HTML document.
func (e *Exporter) RenderPage(page Page) ([]byte, error) {
	mirror := memdom.New()
	loop := runtime.NewLoop(page.Component, mirror, runtime.WithLogger(e.logger))
	defer loop.Close()
	if err := loop.Mount(); err != nil {
		return nil, err
	}

	tree := loop.Root().Tree()
	if tree == nil {
		return nil, fmt.Errorf("component produced no output")
	}
	body, err := e.renderer.RenderToString(tree)
	if err != nil {
		return nil, err
	}

	title := page.Title
	if title == "" {
		title = page.Path
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, pageShell, render.EscapeText(title), body)
	return buf.Bytes(), nil
}

const pageShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
<div id="app">
%s</div>
</body>
</html>
`

// DirPublisher writes pages under a root directory.
type DirPublisher struct {
	Root string
}

func (d *DirPublisher) Publish(_ context.Context, path, _ string, body io.Reader) error {
	full := filepath.Join(d.Root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	f, err := os.Create(full)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, body)
	return err
}
