// Package textnorm reduces a comment's markup source to the plain text a
// reader would see, so classification is not fooled by formatting.
//
// Quotes, links, strikethrough, spoilers, emphasis, and headings collapse to
// their text; markdown escape backslashes (e.g. "50\. Text", written to stop a
// numbered list from rendering) are removed; the result is NFC-normalized.
package textnorm

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"golang.org/x/text/unicode/norm"
)

// spoilers use the >!text!< syntax, which CommonMark would otherwise read as
// a blockquote starting with "!".
var spoilerRe = regexp.MustCompile(`(?s)>!(.*?)!<`)

var blankRunRe = regexp.MustCompile(`\n{2,}`)

var md = goldmark.New(goldmark.WithExtensions(extension.Strikethrough))

// Normalize returns the visible text of body. It is pure and deterministic.
func Normalize(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}

	src := []byte(spoilerRe.ReplaceAllString(body, "$1"))
	doc := md.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
				buf.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				buf.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	out := util.UnescapePunctuations(buf.Bytes())
	out = blankRunRe.ReplaceAll(out, []byte("\n"))
	return norm.NFC.String(strings.TrimSpace(string(out)))
}
