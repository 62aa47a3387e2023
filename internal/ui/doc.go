// Package ui renders git command progress as human-readable console log lines.
//
// Structured logs keep the full command telemetry; this package is used only
// when the console log format is selected.
package ui
