package ntfy

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// DecodeText converts attachment bytes to a string. Valid UTF-8 is returned
// as is; otherwise GBK is tried, and if that also produces replacement runes
// the bytes are read as UTF-8 with invalid sequences replaced by U+FFFD.
func DecodeText(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if utf8.Valid(b) {
		return string(b)
	}
	if s, err := simplifiedchinese.GBK.NewDecoder().Bytes(b); err == nil && utf8.Valid(s) &&
		!strings.ContainsRune(string(s), utf8.RuneError) {
		return string(s)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

// Kind is the result of classifying an attachment. Image and Text are
// independent; both may be false.
type Kind struct {
	Image bool
	Text  bool
}

// Classify decides how an attachment should be handled from its filename
// and content type. Images are recognised by an extension listed in the
// image map or an image/* content type; text by a .txt extension or a
// text/plain content type.
func (c *Client) Classify(filename, contentType string) Kind {
	ext := strings.ToLower(filepath.Ext(filename))
	ct := strings.ToLower(strings.TrimSpace(contentType))

	var k Kind
	if _, ok := c.imageExts[ext]; ok && ext != "" {
		k.Image = true
	} else if strings.HasPrefix(ct, "image/") {
		k.Image = true
	}
	k.Text = ext == ".txt" || strings.HasPrefix(ct, "text/plain")
	return k
}
