package charset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectUTF8BOM(t *testing.T) {
	assert.Equal(t, UTF8, Detect([]byte{0xEF, 0xBB, 0xBF, 'a'}))
}

func TestDetectUTF16LEBOM(t *testing.T) {
	assert.Equal(t, "utf-16le", Detect([]byte{0xFF, 0xFE, 'a', 0}))
}

func TestDetectDefaultsToUTF8(t *testing.T) {
	assert.Equal(t, UTF8, Detect([]byte("plain ascii")))
}

func TestDecodeUTF8IsNoOp(t *testing.T) {
	out, err := Decode([]byte("hello"), "UTF-8")
	assert.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestDecodeUnrecognizedCharsetErrors(t *testing.T) {
	_, err := Decode([]byte("hello"), "nonsense-9000")
	assert.Error(t, err)
}

func TestDecodeWindows1252RoundTrip(t *testing.T) {
	encoded, err := Encode([]byte("café"), "windows-1252")
	assert.NoError(t, err)
	decoded, err := Decode(encoded, "windows-1252")
	assert.NoError(t, err)
	assert.Equal(t, "café", string(decoded))
}
