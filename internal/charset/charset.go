// Package charset turns fetched source bytes into UTF-8 text.
package charset

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ToUTF8 returns body as UTF-8 text. Valid UTF-8 is returned as-is (minus a
// leading byte order mark); anything else is decoded as Windows-1252, the
// superset of Latin-1 that agency pages and spreadsheet exports fall back to.
func ToUTF8(body []byte) string {
	body = bytes.TrimPrefix(body, utf8BOM)
	if utf8.Valid(body) {
		return string(body)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(body)
	if err != nil || !utf8.Valid(decoded) {
		return string(bytes.ToValidUTF8(body, []byte("�")))
	}
	return string(decoded)
}
