package botapi

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

var textEscape = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// renderText converts a message text and its entities into the HTML dialect
// read by the content transformer. Offsets and lengths count UTF-16 code
// units. Entities without an HTML form are emitted as plain text.
func renderText(text string, entities []entity) string {
	if text == "" {
		return ""
	}
	units := utf16.Encode([]rune(text))
	if len(entities) == 0 {
		return textEscape.Replace(text)
	}

	sorted := make([]entity, 0, len(entities))
	for _, e := range entities {
		if e.Length <= 0 || e.Offset < 0 || e.Offset >= len(units) {
			continue
		}
		if e.Offset+e.Length > len(units) {
			e.Length = len(units) - e.Offset
		}
		sorted = append(sorted, e)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Offset != sorted[j].Offset {
			return sorted[i].Offset < sorted[j].Offset
		}
		return sorted[i].Length > sorted[j].Length
	})

	opens := map[int][]entity{}
	bounds := map[int]struct{}{0: {}, len(units): {}}
	for _, e := range sorted {
		opens[e.Offset] = append(opens[e.Offset], e)
		bounds[e.Offset] = struct{}{}
		bounds[e.Offset+e.Length] = struct{}{}
	}
	points := make([]int, 0, len(bounds))
	for p := range bounds {
		points = append(points, p)
	}
	sort.Ints(points)

	var out strings.Builder
	out.Grow(len(text) + len(sorted)*16)
	var stack []entity
	for i, p := range points {
		stack = closeAt(&out, stack, p, units)
		for _, e := range opens[p] {
			out.WriteString(openTag(e, units))
			stack = append(stack, e)
		}
		if i+1 < len(points) {
			segment := string(utf16.Decode(units[p:points[i+1]]))
			out.WriteString(textEscape.Replace(segment))
		}
	}
	return out.String()
}

// closeAt closes every open entity ending at p. Entities opened after the
// lowest one ending there are closed first and reopened afterwards so
// overlapping ranges still produce well nested tags.
func closeAt(out *strings.Builder, stack []entity, p int, units []uint16) []entity {
	lowest := -1
	for i, e := range stack {
		if e.Offset+e.Length == p {
			lowest = i
			break
		}
	}
	if lowest < 0 {
		return stack
	}
	for i := len(stack) - 1; i >= lowest; i-- {
		out.WriteString(closeTag(stack[i]))
	}
	kept := stack[:lowest]
	for _, e := range stack[lowest:] {
		if e.Offset+e.Length == p {
			continue
		}
		out.WriteString(openTag(e, units))
		kept = append(kept, e)
	}
	return kept
}

func openTag(e entity, units []uint16) string {
	switch e.Type {
	case "bold":
		return "<b>"
	case "italic":
		return "<i>"
	case "underline":
		return "<u>"
	case "strikethrough":
		return "<s>"
	case "spoiler":
		return "<spoiler>"
	case "code":
		return "<code>"
	case "pre":
		if e.Language != "" {
			return `<pre><code class="language-` + textEscape.Replace(e.Language) + `">`
		}
		return "<pre>"
	case "blockquote", "expandable_blockquote":
		return "<blockquote>"
	case "text_link":
		return `<a href="` + textEscape.Replace(e.URL) + `">`
	case "url":
		target := string(utf16.Decode(units[e.Offset : e.Offset+e.Length]))
		return `<a href="` + textEscape.Replace(target) + `">`
	case "email":
		target := string(utf16.Decode(units[e.Offset : e.Offset+e.Length]))
		return `<a href="mailto:` + textEscape.Replace(target) + `">`
	case "text_mention":
		if e.User != nil {
			return `<a href="tg://user?id=` + strconv.FormatInt(e.User.ID, 10) + `">`
		}
	}
	return ""
}

func closeTag(e entity) string {
	switch e.Type {
	case "bold":
		return "</b>"
	case "italic":
		return "</i>"
	case "underline":
		return "</u>"
	case "strikethrough":
		return "</s>"
	case "spoiler":
		return "</spoiler>"
	case "code":
		return "</code>"
	case "pre":
		if e.Language != "" {
			return "</code></pre>"
		}
		return "</pre>"
	case "blockquote", "expandable_blockquote":
		return "</blockquote>"
	case "text_link", "url", "email":
		return "</a>"
	case "text_mention":
		if e.User != nil {
			return "</a>"
		}
	}
	return ""
}
