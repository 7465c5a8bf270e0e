// Package content renders saved EditorJS documents to the HTML body of a
// newsletter email.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrInvalidDocument = errors.New("content: invalid editor document")

// Meta is shown around the rendered blocks.
type Meta struct {
	Title      string
	WriterName string
	Cover      string
}

var layout = template.Must(template.New("newsletter").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="margin:0;padding:0;background:#f7f7f7;">
<div style="max-width:640px;margin:0 auto;padding:32px 24px;background:#ffffff;font-family:sans-serif;line-height:1.7;color:#222;">
{{- if .Cover}}
<img src="{{.Cover}}" alt="" style="width:100%;border-radius:8px;">
{{- end}}
<h1 style="font-size:26px;">{{.Title}}</h1>
{{- if .WriterName}}
<p style="color:#777;">{{.WriterName}}</p>
{{- end}}
{{.Body}}
<hr style="margin-top:48px;border:none;border-top:1px solid #eee;">
<p style="font-size:12px;color:#999;">Sent with Moonjin. Unsubscribe links are added by the mail provider.</p>
</div>
</body>
</html>
`))

// Render turns an EditorJS document into a full HTML email. Inline markup in
// text blocks (bold, italic, links) is kept as the editor produced it; code
// blocks and attribute values are escaped. Unknown block types are skipped.
func Render(raw []byte, meta Meta) (string, error) {
	body, err := RenderBlocks(raw)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = layout.Execute(&buf, struct {
		Meta
		Body template.HTML
	}{meta, template.HTML(body)})
	if err != nil {
		return "", fmt.Errorf("content: execute layout: %w", err)
	}
	return buf.String(), nil
}

// RenderBlocks renders only the block markup.
func RenderBlocks(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", ErrInvalidDocument
	}
	blocks := gjson.GetBytes(raw, "blocks")
	if !blocks.IsArray() {
		return "", ErrInvalidDocument
	}
	var sb strings.Builder
	blocks.ForEach(func(_, block gjson.Result) bool {
		sb.WriteString(renderBlock(block))
		return true
	})
	return sb.String(), nil
}

func renderBlock(block gjson.Result) string {
	data := block.Get("data")
	switch block.Get("type").String() {
	case "paragraph":
		return "<p>" + data.Get("text").String() + "</p>\n"
	case "header":
		level := data.Get("level").Int()
		if level < 1 || level > 6 {
			level = 2
		}
		return fmt.Sprintf("<h%d>%s</h%d>\n", level, data.Get("text").String(), level)
	case "list":
		tag := "ul"
		if data.Get("style").String() == "ordered" {
			tag = "ol"
		}
		return renderList(tag, data.Get("items"))
	case "quote":
		out := "<blockquote>" + data.Get("text").String()
		if caption := data.Get("caption").String(); caption != "" {
			out += "<br><cite>" + caption + "</cite>"
		}
		return out + "</blockquote>\n"
	case "image":
		url := data.Get("file.url").String()
		if url == "" {
			url = data.Get("url").String()
		}
		if url == "" {
			return ""
		}
		out := fmt.Sprintf(`<figure><img src="%s" alt="%s" style="max-width:100%%;">`,
			html.EscapeString(url), html.EscapeString(data.Get("caption").String()))
		if caption := data.Get("caption").String(); caption != "" {
			out += "<figcaption>" + caption + "</figcaption>"
		}
		return out + "</figure>\n"
	case "delimiter":
		return "<hr>\n"
	case "code":
		return "<pre><code>" + html.EscapeString(data.Get("code").String()) + "</code></pre>\n"
	}
	return ""
}

// renderList handles both flat string items and the nested-list plugin's
// {content, items} objects.
func renderList(tag string, items gjson.Result) string {
	if !items.IsArray() || len(items.Array()) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("<" + tag + ">")
	items.ForEach(func(_, item gjson.Result) bool {
		sb.WriteString("<li>")
		if item.IsObject() {
			sb.WriteString(item.Get("content").String())
			sb.WriteString(renderList(tag, item.Get("items")))
		} else {
			sb.WriteString(item.String())
		}
		sb.WriteString("</li>")
		return true
	})
	sb.WriteString("</" + tag + ">\n")
	return sb.String()
}
