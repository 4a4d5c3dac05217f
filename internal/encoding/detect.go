package encoding

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const sniffLen = 4096

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// ToUTF8 transcodes an uploaded text file to UTF-8 and reports the charset it was read as.
//
// Detection order:
//  1. BOM (UTF-8 BOM is stripped; UTF-16 LE/BE is decoded)
//  2. valid UTF-8 is returned unchanged
//  3. chardet's best guess, resolved through the WHATWG encoding index
//  4. Windows-1252
func ToUTF8(data []byte) ([]byte, string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], "UTF-8", nil
	case bytes.HasPrefix(data, bomUTF16LE):
		return decode(data, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), "UTF-16LE")
	case bytes.HasPrefix(data, bomUTF16BE):
		return decode(data, unicode.UTF16(unicode.BigEndian, unicode.UseBOM), "UTF-16BE")
	}

	if utf8.Valid(data) {
		return data, "UTF-8", nil
	}

	sample := data
	if len(sample) > sniffLen {
		sample = sample[:sniffLen]
	}

	if result, err := chardet.NewTextDetector().DetectBest(sample); err == nil {
		if result.Charset == "UTF-8" {
			return data, "UTF-8", nil
		}

		if enc, err := htmlindex.Get(result.Charset); err == nil {
			return decode(data, enc, result.Charset)
		}
	}

	return decode(data, charmap.Windows1252, "windows-1252")
}

func decode(data []byte, enc encoding.Encoding, name string) ([]byte, string, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, name, fmt.Errorf("decoding %s: %w", name, err)
	}

	return out, name, nil
}
