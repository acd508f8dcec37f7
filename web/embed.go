package web

import "embed"

// StaticFS embeds the browser frontend (html/css/js).
//
//go:embed static/*
var StaticFS embed.FS
