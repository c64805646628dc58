package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderNotice_Blank(t *testing.T) {
	assert.Equal(t, "", RenderNotice(""))
	assert.Equal(t, "", RenderNotice("  \n\t"))
}

func TestRenderNotice_Emphasis(t *testing.T) {
	result := RenderNotice("**Freeze** until ~~Friday~~ Monday")

	assert.Contains(t, result, "<strong>Freeze</strong>")
	assert.Contains(t, result, "<del>Friday</del>")
}

func TestRenderNotice_BareURLBecomesExternalLink(t *testing.T) {
	result := RenderNotice("Status at https://status.example.com")

	assert.Contains(t, result, `href="https://status.example.com"`)
	assert.Contains(t, result, `target="_blank"`)
	assert.Contains(t, result, "nofollow")
}

func TestRenderNotice_RelativeLinkStaysInPage(t *testing.T) {
	result := RenderNotice("[the queue](/)")

	assert.Contains(t, result, `href="/"`)
	assert.NotContains(t, result, "_blank")
}

func TestRenderNotice_DropsRawHTML(t *testing.T) {
	result := RenderNotice("<script>alert(1)</script>\n\nplain")

	assert.NotContains(t, result, "<script")
	assert.Contains(t, result, "plain")
}
