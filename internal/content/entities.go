package content

import (
	"strings"
)

// EntityType names the kind of a rich-text span.
type EntityType string

const (
	EntityPlain         EntityType = "plain"
	EntityBold          EntityType = "bold"
	EntityItalic        EntityType = "italic"
	EntityUnderline     EntityType = "underline"
	EntityStrikethrough EntityType = "strikethrough"
	EntityBlockquote    EntityType = "blockquote"
	EntityCode          EntityType = "code"
	EntityPre           EntityType = "pre"
	EntityLink          EntityType = "link"
	EntityTextLink      EntityType = "text_link"
	EntitySpoiler       EntityType = "spoiler"
	EntityMention       EntityType = "mention"
)

// Entity is one flat span of message text. Entities do not nest.
type Entity struct {
	Type     EntityType `json:"type"`
	Text     string     `json:"text"`
	Href     string     `json:"href,omitempty"`
	Language string     `json:"language,omitempty"`
}

// Dialect selects the markup produced by RenderEntities.
type Dialect int

const (
	// DialectHTML emits inline HTML and Liquid highlight blocks.
	DialectHTML Dialect = iota
	// DialectMarkdown emits markdown wherever markdown has a construct.
	DialectMarkdown
)

const mentionBaseURL = "https://t.me/"

// defaultHighlightLanguage is used for pre spans without a language tag.
const defaultHighlightLanguage = "text"

// RenderEntities concatenates the rendered form of every entity in order.
func RenderEntities(entities []Entity, dialect Dialect) string {
	var out strings.Builder
	for _, entity := range entities {
		out.WriteString(RenderEntity(entity, dialect))
	}
	return out.String()
}

// RenderEntity renders a single span. Unknown types render as plain text.
func RenderEntity(entity Entity, dialect Dialect) string {
	if dialect == DialectMarkdown {
		return renderMarkdown(entity)
	}
	return renderHTML(entity)
}

func renderHTML(entity Entity) string {
	text := angleBracketEscape.Replace(entity.Text)
	switch entity.Type {
	case EntityBold:
		return "<strong>" + text + "</strong>"
	case EntityItalic:
		return "<em>" + text + "</em>"
	case EntityUnderline:
		return "<u>" + text + "</u>"
	case EntityStrikethrough:
		return "<del>" + text + "</del>"
	case EntityBlockquote:
		return "<blockquote>" + strings.ReplaceAll(text, "\n", lineBreakTag) + "</blockquote>"
	case EntityCode:
		return "<code>" + text + "</code>"
	case EntityPre:
		return "{% highlight " + highlightLanguage(entity.Language) + " %}\n" + text + "\n{% endhighlight %}"
	case EntityLink:
		return `<a href="` + text + `">` + text + "</a>"
	case EntityTextLink:
		return `<a href="` + entity.Href + `">` + text + "</a>"
	case EntitySpoiler:
		return `<span class="spoiler">` + text + "</span>"
	case EntityMention:
		return `<a href="` + mentionURL(entity.Text) + `">` + text + "</a>"
	default:
		return HardBreaks(text)
	}
}

func renderMarkdown(entity Entity) string {
	text := entity.Text
	switch entity.Type {
	case EntityBold:
		return "**" + text + "**"
	case EntityItalic:
		return "*" + text + "*"
	case EntityUnderline:
		return "<u>" + text + "</u>"
	case EntityStrikethrough:
		return "~~" + text + "~~"
	case EntityBlockquote:
		return "> " + strings.ReplaceAll(text, "\n", lineBreakTag)
	case EntityCode:
		return "`" + text + "`"
	case EntityPre:
		return "```" + entity.Language + "\n" + text + "\n```"
	case EntityLink:
		return "<" + text + ">"
	case EntityTextLink:
		return "[" + text + "](" + entity.Href + ")"
	case EntitySpoiler:
		return `<span class="spoiler">` + text + "</span>"
	case EntityMention:
		return "[" + text + "](" + mentionURL(text) + ")"
	default:
		return HardBreaks(text)
	}
}

func mentionURL(handle string) string {
	return mentionBaseURL + strings.Replace(handle, "@", "", 1)
}

func highlightLanguage(language string) string {
	if language = strings.TrimSpace(language); language == "" {
		return defaultHighlightLanguage
	}
	return language
}
