// Package web carries the embedded UI assets: page templates under
// templates/ and the stylesheet and friends under static/.
package web

import "embed"

//go:embed templates/**/*.html
var Templates embed.FS

//go:embed static/**/*
var Static embed.FS
