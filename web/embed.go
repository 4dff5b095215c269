// Package web embeds the bill screens' templates and assets into the binary.
package web

import "embed"

// TemplatesFS holds the page templates and the fragments htmx swaps in.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the htmx glue script.
//
//go:embed static/*
var StaticFS embed.FS
