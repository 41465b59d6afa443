package charset

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, input, enc string) (string, error) {
	t.Helper()
	r, err := NewReader(strings.NewReader(input), enc)
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	return string(out), err
}

func TestUTF8PassesValidText(t *testing.T) {
	out, err := decode(t, "DENOM_SOCIAL;GESTÃO\n", "utf-8")
	require.NoError(t, err)
	assert.Equal(t, "DENOM_SOCIAL;GESTÃO\n", out)
}

func TestUTF8RejectsInvalidBytes(t *testing.T) {
	_, err := decode(t, "GEST\xc3O\n", "UTF-8")
	assert.Error(t, err)
}

func TestUTF8DropsByteOrderMark(t *testing.T) {
	out, err := decode(t, "\xef\xbb\xbfa;b\n1;2\n", "utf-8")
	require.NoError(t, err)
	assert.Equal(t, "a;b\n1;2\n", out)

	_, err = decode(t, "\xef\xbb\xbfa;GEST\xc3O\n", "utf-8")
	assert.Error(t, err)
}

func TestLatin1DecodesEveryByte(t *testing.T) {
	for _, enc := range []string{"latin1", "iso-8859-1", "ISO-8859-1"} {
		out, err := decode(t, "GEST\xc3O\n", enc)
		require.NoError(t, err, enc)
		assert.Equal(t, "GESTÃO\n", out, enc)
	}
}

func TestIANAFallback(t *testing.T) {
	out, err := decode(t, "pre\x80o\n", "windows-1252")
	require.NoError(t, err)
	assert.Equal(t, "pre€o\n", out)
}

func TestUnknownEncoding(t *testing.T) {
	assert.Error(t, Validate("klingon-8"))
	assert.NoError(t, Validate("utf8"))
}
