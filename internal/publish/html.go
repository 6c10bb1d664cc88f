package publish

import (
	"bytes"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts a Markdown document into a standalone HTML page.
func RenderHTML(title, markdown string) (string, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	buf.WriteString("<!doctype html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	buf.WriteString("<title>" + html.EscapeString(title) + "</title>\n")
	buf.WriteString("<style>body{font-family:system-ui,sans-serif;max-width:60rem;margin:2rem auto;padding:0 1rem}" +
		"table{border-collapse:collapse;width:100%}th,td{border:1px solid #ddd;padding:.3rem .6rem}" +
		"td:nth-child(1),td:nth-child(4),td:nth-child(5){text-align:right}</style>\n")
	buf.WriteString("</head>\n<body>\n")
	buf.Write(body.Bytes())
	buf.WriteString("</body>\n</html>\n")
	return buf.String(), nil
}
