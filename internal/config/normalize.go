package config

import "strings"

// Normalize trims whitespace and applies derived defaults that depend on
// more than one field. Call after LoadFile/flag overlay, before Validate.
func (c Config) Normalize() Config {
	c.WhisperServerURL = strings.TrimRight(strings.TrimSpace(c.WhisperServerURL), "/")
	c.ChatServerURL = strings.TrimRight(strings.TrimSpace(c.ChatServerURL), "/")
	c.OutputDir = strings.TrimSpace(c.OutputDir)
	c.RenderQuality = strings.ToLower(strings.TrimSpace(c.RenderQuality))
	if c.RenderQuality == "" {
		c.RenderQuality = "medium"
	}
	return c
}
