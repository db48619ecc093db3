// Package assets embeds the page shell served at the site root.
package assets

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

var (
	//go:embed index.html.tpl
	indexTemplate string
	//go:embed style.css
	styleCSS string
	//go:embed script.js
	scriptJS string
)

type pageData struct {
	CSS string
	JS  string
}

// IndexHTML renders the page shell with inlined, minified CSS and JS.
func IndexHTML() ([]byte, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)

	cssMin, err := m.String("text/css", styleCSS)
	if err != nil {
		return nil, fmt.Errorf("minify css: %w", err)
	}
	jsMin, err := m.String("text/javascript", scriptJS)
	if err != nil {
		return nil, fmt.Errorf("minify js: %w", err)
	}

	tmpl, err := template.New("index").Parse(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, pageData{CSS: cssMin, JS: jsMin}); err != nil {
		return nil, fmt.Errorf("render index template: %w", err)
	}

	out, err := m.Bytes("text/html", buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("minify html: %w", err)
	}
	return out, nil
}
