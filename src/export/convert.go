package export

import (
	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"
)

// Cleans untrusted message HTML before it is converted.
type Sanitizer interface {
	Sanitize(html string) string
}

// Turns (sanitized) message HTML into Markdown.
type Converter interface {
	ConvertString(html string) (string, error)
}

// The UGC policy allows the formatting people actually use in discussion
// posts, and drops script and style elements along with their contents.
func NewSanitizer() Sanitizer {
	return bluemonday.UGCPolicy()
}

func NewConverter() Converter {
	conv := md.NewConverter("", true, &md.Options{
		HeadingStyle: "atx",
	})
	conv.Remove("script", "style", "link")
	return conv
}
