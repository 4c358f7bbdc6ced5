// Package web holds the dashboard templates and static assets compiled into
// the server binary.
package web

import "embed"

//go:embed templates/*.html
var TemplatesFS embed.FS

//go:embed static/*
var StaticFS embed.FS
