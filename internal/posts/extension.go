package posts

import (
	"strconv"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"

	"github.com/goliatone/go-chansync/pkg/interfaces"
)

var fallbackExtensions = map[interfaces.MediaKind]string{
	interfaces.MediaPhoto:     "jpg",
	interfaces.MediaVideo:     "mp4",
	interfaces.MediaAnimation: "mp4",
}

// DetectExtension sniffs the file type of buf. When the bytes are not
// recognised the extension falls back to the usual container of kind.
func DetectExtension(buf []byte, kind interfaces.MediaKind) string {
	if len(buf) > 0 {
		if match, err := filetype.Match(buf); err == nil && match != types.Unknown && match.Extension != "" {
			return match.Extension
		}
	}
	if ext, ok := fallbackExtensions[kind]; ok {
		return ext
	}
	return "bin"
}

// MediaName builds the synthetic source name of a downloaded attachment.
func MediaName(messageID int64, buf []byte, kind interfaces.MediaKind) string {
	return strconv.FormatInt(messageID, 10) + "." + DetectExtension(buf, kind)
}
