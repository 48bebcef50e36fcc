package web

import "embed"

// Static holds the single-page operator UI served at /
//
//go:embed static/index.html static/css/*.css static/js/*.js
var Static embed.FS
