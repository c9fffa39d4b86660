package csvio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestOpen_UTF8(t *testing.T) {
	path := writeFile(t, []byte("recipient,type\na@example.com,transactional\nb@example.com,non_transactional\n"))

	r, err := Open(path, []string{"utf-8"})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "utf-8", r.Encoding)
	assert.Equal(t, 3, r.Lines)

	row, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"recipient", "type"}, row)

	row, err = r.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "transactional"}, row)
}

func TestOpen_FallsThroughToLatin1(t *testing.T) {
	// 0xE9 is not a valid UTF-8 sequence on its own but decodes to é under
	// iso-8859-1.
	path := writeFile(t, []byte("recipient,description\ncaf\xe9@example.com,latin row\n"))

	r, err := Open(path, []string{"utf-8", "iso-8859-1"})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "iso-8859-1", r.Encoding)

	_, err = r.Read() // header
	require.NoError(t, err)
	row, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "café@example.com", row[0])
}

func TestOpen_AllEncodingsRejected(t *testing.T) {
	path := writeFile(t, []byte("recipient\nbad\xff\xfe\xfdrow\n"))

	_, err := Open(path, []string{"utf-8", "us-ascii"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreadable under configured encodings")
}

func TestOpen_AcceptsLiteralReplacementRune(t *testing.T) {
	// U+FFFD encoded as EF BF BD is valid UTF-8 and must not be mistaken
	// for a decoding failure.
	path := writeFile(t, []byte("recipient,description\na@example.com,had \xef\xbf\xbd in source\n"))

	r, err := Open(path, []string{"utf-8"})
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "utf-8", r.Encoding)

	_, err = r.Read() // header
	require.NoError(t, err)
	row, err := r.Read()
	require.NoError(t, err)
	assert.Contains(t, row[1], "�")
}

func TestOpen_RejectionNamesLine(t *testing.T) {
	path := writeFile(t, []byte("recipient\na@example.com\nbad\xffrow\n"))

	_, err := Open(path, []string{"utf-8"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "near line 3")
}

func TestOpen_UnknownEncodingName(t *testing.T) {
	path := writeFile(t, []byte("recipient\n"))

	_, err := Open(path, []string{"klingon-8"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown character encoding")
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"), []string{"utf-8"})
	require.Error(t, err)
}

func TestOpen_DefaultsToUTF8(t *testing.T) {
	path := writeFile(t, []byte("a@example.com\n"))

	r, err := Open(path, nil)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "utf-8", r.Encoding)
}

func TestReader_ToleratesRaggedRowsAndStrayQuotes(t *testing.T) {
	path := writeFile(t, []byte("recipient,type,description\na@example.com\nb@example.com,transactional,it's \"quoted\"\n"))

	r, err := Open(path, []string{"utf-8"})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Read() // header
	require.NoError(t, err)

	row, err := r.Read()
	require.NoError(t, err, "short rows must reach the row validator, not fail in the reader")
	assert.Len(t, row, 1)

	row, err = r.Read()
	require.NoError(t, err)
	assert.Len(t, row, 3)
}
