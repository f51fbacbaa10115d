package generator

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

const sampleDoc = "<!DOCTYPE html>\n<html lang=\"en\">\n<head><title>Clock</title></head>\n<body>\n<div id=\"clock\"></div>\n</body>\n</html>"

func TestExtractHTMLFencedBlock(t *testing.T) {
	text := "Sure! Here is your demo:\n\n```html\n" + sampleDoc + "\n```\n\nEnjoy."
	assert.Equal(t, sampleDoc, ExtractHTML(text))
}

func TestExtractHTMLBareFence(t *testing.T) {
	text := "```\n" + sampleDoc + "\n```"
	assert.Equal(t, sampleDoc, ExtractHTML(text))
}

func TestExtractHTMLAlreadyADocument(t *testing.T) {
	assert.Equal(t, sampleDoc, ExtractHTML("  \n"+sampleDoc+"\n\n"))
	assert.Equal(t, sampleDoc, ExtractHTML(sampleDoc))
}

func TestExtractHTMLCaseInsensitive(t *testing.T) {
	doc := "<!doctype HTML><HTML><BODY>x</BODY></HTML>"
	assert.Equal(t, doc, ExtractHTML("intro "+doc+" outro"))
}

func TestExtractHTMLWithoutDoctype(t *testing.T) {
	doc := "<html lang=\"en\">\n<body><p>hi</p></body>\n</html>"
	assert.Equal(t, doc, ExtractHTML("Here you go:\n"+doc+"\nThanks"))
}

func TestExtractHTMLWrapsFragment(t *testing.T) {
	got := ExtractHTML("The widget:\n<div class=\"card\">\n<p>Hello</p>\n</div>\nDone.")

	assert.True(t, strings.HasPrefix(got, "<!DOCTYPE html>"))
	assert.Contains(t, got, `<meta charset="UTF-8">`)
	assert.Contains(t, got, `<meta name="viewport"`)
	assert.Contains(t, got, "<title>Generated Demo</title>")
	assert.Contains(t, got, "<div class=\"card\">\n<p>Hello</p>\n</div>")
	assert.NotContains(t, got, "The widget:")
	assert.True(t, strings.HasSuffix(got, "</html>"))
}

func TestExtractHTMLFragmentSkipsUnclosedTags(t *testing.T) {
	got := ExtractHTML("<br> then <span>ok</span>")
	assert.Contains(t, got, "<body>\n<span>ok</span>\n</body>")
}

func TestExtractHTMLFallbackEscapes(t *testing.T) {
	got := ExtractHTML("no markup here")

	assert.Contains(t, got, "<!DOCTYPE html>")
	assert.Contains(t, got, "<pre>no markup here</pre>")

	got = ExtractHTML(`a & b < c > d "q" 'x'`)
	assert.Contains(t, got, "<pre>a &amp; b &lt; c &gt; d &quot;q&quot; &#039;x&#039;</pre>")
	assert.Contains(t, got, "<h1>Generated Demo</h1>")
}

func TestExtractHTMLTruncatedDocumentFallsBack(t *testing.T) {
	got := ExtractHTML("```html\n<!DOCTYPE html>\n<html><body><h2>Title</h2><p>cut")
	assert.Contains(t, got, "<h2>Title</h2>")
	assert.False(t, IsTruncated(got))
}

func TestExtractHTMLNonASCIIPrefix(t *testing.T) {
	cases := map[string]struct {
		text string
		want string
	}{
		"kelvin sign":    {strings.Repeat("\u212a", 10) + " temps: <b>hot</b>", "<b>hot</b>"},
		"dotted capital": {"\u0130\u0130\u0130\u0130\u0130\u0130 <span>ok</span> tail", "<span>ok</span>"},
		"invalid utf-8":  {"\xff\xff\xff\xff <span>ok</span> tail", "<span>ok</span>"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var got string
			assert.NotPanics(t, func() { got = ExtractHTML(tc.text) })
			assert.Contains(t, got, "<body>\n"+tc.want+"\n</body>")
			assert.NotContains(t, got, "<pre>")
		})
	}
}

func TestExtractHTMLFallbackIsValidUTF8(t *testing.T) {
	got := ExtractHTML("\xff\xfe no markup")
	assert.True(t, utf8.ValidString(got))
	assert.Contains(t, got, "<pre>\ufffd no markup</pre>")
}
