package web

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Raw HTML in a notice is dropped by goldmark; bluemonday then bounds what
// the markdown itself can produce.
var (
	noticeMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.Linkify, extension.Strikethrough, extension.Table),
	)
	noticePolicy = func() *bluemonday.Policy {
		p := bluemonday.UGCPolicy()
		p.RequireNoFollowOnFullyQualifiedLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		return p
	}()
)

// RenderNotice converts the operator's markdown notice to sanitized HTML.
// Blank input yields "" so the page omits the notice box.
func RenderNotice(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := noticeMarkdown.Convert([]byte(src), &buf); err != nil {
		return noticePolicy.Sanitize(src)
	}
	return noticePolicy.Sanitize(buf.String())
}
