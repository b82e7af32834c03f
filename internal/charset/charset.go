// Package charset adapts the teacher's modules/chardet encoding table to
// the formatter's decode/encode boundary (spec.md §4.9 "charset-aware
// decode of C/C++ source before tokenising"). Full content-sniffing
// detection (the teacher's modules/mime-backed detectCharset) is out of
// scope here; BOM sniffing covers the common source-file case and keeps
// this package's job to exactly what the formatter needs.
package charset

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// UTF8 is the default charset name assumed absent a BOM or explicit
// override.
const UTF8 = "UTF-8"

var encodings = map[string]encoding.Encoding{
	"iso-8859-2":   charmap.ISO8859_2,
	"iso-8859-3":   charmap.ISO8859_3,
	"iso-8859-4":   charmap.ISO8859_4,
	"iso-8859-5":   charmap.ISO8859_5,
	"iso-8859-6":   charmap.ISO8859_6,
	"iso-8859-7":   charmap.ISO8859_7,
	"iso-8859-8":   charmap.ISO8859_8,
	"iso-8859-10":  charmap.ISO8859_10,
	"iso-8859-15":  charmap.ISO8859_15,
	"koi8-r":       charmap.KOI8R,
	"windows-1250": charmap.Windows1250,
	"windows-1251": charmap.Windows1251,
	"windows-1252": charmap.Windows1252,
	"gbk":          simplifiedchinese.GBK,
	"gb18030":      simplifiedchinese.GB18030,
	"big5":         traditionalchinese.Big5,
	"euc-jp":       japanese.EUCJP,
	"shift_jis":    japanese.ShiftJIS,
	"euc-kr":       korean.EUCKR,
	"utf-16be":     unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
	"utf-16le":     unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
}

// Detect sniffs a byte-order mark, falling back to UTF8. It never
// inspects content beyond the first 3 bytes, matching the formatter's
// need for a fast, deterministic charset label rather than full
// statistical detection.
func Detect(payload []byte) string {
	switch {
	case bytes.HasPrefix(payload, []byte{0xEF, 0xBB, 0xBF}):
		return UTF8
	case bytes.HasPrefix(payload, []byte{0xFE, 0xFF}):
		return "utf-16be"
	case bytes.HasPrefix(payload, []byte{0xFF, 0xFE}):
		return "utf-16le"
	default:
		return UTF8
	}
}

// Decode converts payload from charset to UTF-8. UTF-8 input is returned
// unchanged.
func Decode(payload []byte, cs string) ([]byte, error) {
	if strings.EqualFold(cs, UTF8) || cs == "" {
		return payload, nil
	}
	enc, ok := encodings[strings.ToLower(cs)]
	if !ok {
		return nil, fmt.Errorf("charset: unrecognized charset %q", cs)
	}
	return enc.NewDecoder().Bytes(payload)
}

// Encode converts UTF-8 payload to charset.
func Encode(payload []byte, cs string) ([]byte, error) {
	if strings.EqualFold(cs, UTF8) || cs == "" {
		return payload, nil
	}
	enc, ok := encodings[strings.ToLower(cs)]
	if !ok {
		return nil, fmt.Errorf("charset: unrecognized charset %q", cs)
	}
	return enc.NewEncoder().Bytes(payload)
}
