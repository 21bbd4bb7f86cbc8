package content

import (
	"regexp"
	"strings"
)

// addressPattern matches a hex address at the very end of a body, optionally
// preceded by a hard break.
var addressPattern = regexp.MustCompile(`(\s\s\n)?0x[0-9a-fA-F]+\n?$`)

// TitlePolicy derives a post title from its rendered body.
type TitlePolicy func(body string) string

// Processor rewrites a rendered post, front matter included, before it is
// written to disk.
type Processor func(content string) string

// StaticTitle always returns the given title.
func StaticTitle(title string) TitlePolicy {
	return func(string) string { return title }
}

// AddressTitle returns "<channel> [0x...]" when the body ends with a hex
// address and the channel identifier otherwise.
func AddressTitle(channelID string) TitlePolicy {
	return func(body string) string {
		match := addressPattern.FindString(body)
		if match == "" {
			return channelID
		}
		return channelID + " [" + strings.TrimSpace(match) + "]"
	}
}

// StripAddress removes a trailing hex address from content.
func StripAddress(content string) string {
	return addressPattern.ReplaceAllString(content, "")
}

// Identity leaves content unchanged.
func Identity(content string) string { return content }
