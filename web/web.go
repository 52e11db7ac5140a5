// Package web embeds the viewer page, its fragments and static assets.
package web

import "embed"

//go:embed templates static
var FS embed.FS
