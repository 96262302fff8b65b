// Package web holds the screens and browser assets, embedded in the binary.
package web

import "embed"

// TemplatesFS holds the page layouts and the htmx fragments (card, turn,
// leaderboard_table).
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the script handling toasts and sounds.
//
//go:embed static/*
var StaticFS embed.FS
