package uploads

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is the 8-byte PNG signature plus enough padding for sniffing.
var pngHeader = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)
	return s
}

func TestSavePNG(t *testing.T) {
	s := newTestStorage(t)

	url, err := s.Save(bytes.NewReader(pngHeader))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "/uploads/"), "url = %q", url)
	assert.True(t, strings.HasSuffix(url, ".png"), "url = %q", url)

	stored := filepath.Join(s.Dir(), strings.TrimPrefix(url, "/uploads/"))
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestSavePDF(t *testing.T) {
	s := newTestStorage(t)

	url, err := s.Save(strings.NewReader("%PDF-1.4\n%prescription"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".pdf"), "url = %q", url)
}

func TestSaveRejectsUnknownType(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Save(strings.NewReader("just some plain text, not a prescription scan"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected upload must not leave a file behind")
}

func TestSaveRejectsOversizedFile(t *testing.T) {
	s := newTestStorage(t)

	big := append(append([]byte{}, pngHeader...), make([]byte, MaxFileSize)...)
	_, err := s.Save(bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestSaveGeneratesUniqueNames(t *testing.T) {
	s := newTestStorage(t)

	first, err := s.Save(bytes.NewReader(pngHeader))
	require.NoError(t, err)
	second, err := s.Save(bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
