package service

import (
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ledger/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(&config.UploadConfig{
		Dir:          t.TempDir(),
		MaxSizeMB:    5,
		AllowedTypes: []string{"image/jpeg", "image/png", "application/pdf"},
	})
	require.NoError(t, err)
	return store
}

func fileHeader(name, contentType string, size int64) *multipart.FileHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Type", contentType)
	return &multipart.FileHeader{Filename: name, Header: h, Size: size}
}

func TestFileStore_Validate(t *testing.T) {
	store := newTestStore(t)

	assert.NoError(t, store.Validate(fileHeader("a.jpg", "image/jpeg", 1024)))

	// 带参数的 Content-Type 也能识别
	assert.NoError(t, store.Validate(fileHeader("a.jpg", "image/jpeg; charset=binary", 1024)))

	err := store.Validate(fileHeader("a.exe", "application/octet-stream", 1024))
	assert.ErrorIs(t, err, ErrInvalidFileType)

	err = store.Validate(fileHeader("big.jpg", "image/jpeg", 6*1024*1024))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestFileStore_GenerateName(t *testing.T) {
	store := newTestStore(t)

	name := store.GenerateName("发票 2026.PDF")
	assert.True(t, strings.HasSuffix(name, ".pdf"))
	assert.NotContains(t, name, " ")

	// 两次生成不重名
	assert.NotEqual(t, name, store.GenerateName("发票 2026.PDF"))

	// 可疑扩展名被丢弃
	name = store.GenerateName("evil.jpg.{weird}")
	assert.NotContains(t, name, "{")
}

func TestFileStore_PathTraversal(t *testing.T) {
	store := newTestStore(t)

	for _, bad := range []string{"../etc/passwd", "a/../../b", ".hidden", "a b.jpg", ""} {
		_, err := store.Path(bad)
		assert.ErrorIs(t, err, ErrInvalidFilename, "filename: %q", bad)
	}

	path, err := store.Path("receipt-1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "receipt-1.jpg", filepath.Base(path))
}

func TestFileStore_StatAndDelete(t *testing.T) {
	store := newTestStore(t)

	path, err := store.Path("r1.png")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o644))

	info, err := store.Stat("r1.png")
	require.NoError(t, err)
	assert.Equal(t, "r1.png", info.Filename)
	assert.Equal(t, int64(9), info.Size)

	require.NoError(t, store.Delete("r1.png"))

	_, err = store.Stat("r1.png")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.ErrorIs(t, store.Delete("r1.png"), ErrFileNotFound)
}

func TestFileStore_DeleteByURL(t *testing.T) {
	store := newTestStore(t)

	path, err := store.Path("r2.pdf")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("pdf"), 0o644))

	require.NoError(t, store.DeleteByURL("/api/files/view/r2.pdf"))
	_, err = store.Stat("r2.pdf")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestFileStore_List(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"a.jpg", "b.pdf"} {
		path, err := store.Path(name)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	files, err := store.List()
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestContentTypeByExt(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentTypeByExt("a.JPG"))
	assert.Equal(t, "image/png", ContentTypeByExt("a.png"))
	assert.Equal(t, "application/pdf", ContentTypeByExt("发票.pdf"))
	assert.Equal(t, "application/octet-stream", ContentTypeByExt("a.bin"))
}
