package content

import (
	"regexp"
	"strings"
)

var (
	codeSpanPattern    = regexp.MustCompile(`(?s)<code>(.*?)</code>`)
	protectedPattern   = regexp.MustCompile(`(?s)<pre>.*?</pre>|<blockquote>.*?</blockquote>`)
	hardBreakPattern   = regexp.MustCompile(`(?:  )?\n`)
	spoilerPattern     = regexp.MustCompile(`(?s)<spoiler>(.*?)</spoiler>`)
	codeBlockPattern   = regexp.MustCompile(`(?s)<pre><code class="language-(.*?)">(.*?)</code></pre>`)
	angleBracketEscape = strings.NewReplacer("<", "&lt;", ">", "&gt;")
)

const (
	spoilerReplacement   = `<span class="spoiler">${1}</span>`
	codeBlockReplacement = "{% highlight ${1} %}\n${2}\n{% endhighlight %}"
	hardBreak            = "  \n"
	lineBreakTag         = "<br>"
)

// RenderHTML converts the HTML body of a live message into the post body
// dialect. Newlines outside pre and blockquote spans become markdown hard
// breaks, newlines inside blockquotes become <br>, and pre spans are kept as
// is. Spoiler tags and language-tagged code blocks are rewritten last.
func RenderHTML(text string) string {
	if text == "" {
		return ""
	}

	text = codeSpanPattern.ReplaceAllStringFunc(text, func(span string) string {
		inner := span[len("<code>") : len(span)-len("</code>")]
		return "<code>" + angleBracketEscape.Replace(inner) + "</code>"
	})

	var out strings.Builder
	out.Grow(len(text) + len(text)/8)

	last := 0
	for _, loc := range protectedPattern.FindAllStringIndex(text, -1) {
		out.WriteString(HardBreaks(text[last:loc[0]]))
		section := text[loc[0]:loc[1]]
		if strings.HasPrefix(section, "<blockquote>") {
			section = strings.ReplaceAll(section, "\n", lineBreakTag)
		}
		out.WriteString(section)
		last = loc[1]
	}
	out.WriteString(HardBreaks(text[last:]))

	rendered := spoilerPattern.ReplaceAllString(out.String(), spoilerReplacement)
	return codeBlockPattern.ReplaceAllString(rendered, codeBlockReplacement)
}

// HardBreaks turns every newline into a markdown hard break. Lines that
// already end in a hard break are left alone so the conversion is stable
// when applied twice.
func HardBreaks(text string) string {
	if !strings.Contains(text, "\n") {
		return text
	}
	return hardBreakPattern.ReplaceAllString(text, hardBreak)
}
