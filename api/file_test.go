package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"ledger/config"
	"ledger/models"
	"ledger/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := service.NewFileStore(&config.UploadConfig{
		Dir:          dir,
		MaxSizeMB:    1,
		AllowedTypes: []string{"image/jpeg", "image/png", "application/pdf"},
	})
	require.NoError(t, err)

	r := gin.New()
	h := NewFileHandler(store)
	g := r.Group("", asIdentity("manager-1", models.RoleManager))
	g.POST("/files/upload", h.Upload)
	g.GET("/files", h.List)
	g.GET("/files/view/:filename", h.View)
	g.DELETE("/files/:filename", h.Delete)
	return r, dir
}

func multipartUpload(t *testing.T, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="receipt.jpg"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestFileHandler_Upload(t *testing.T) {
	setupTestConfig(t)
	r, dir := newFileRouter(t)

	body, contentType := multipartUpload(t, "image/jpeg", []byte("jpeg-bytes"))
	req := httptest.NewRequest("POST", "/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Filename string `json:"filename"`
			URL      string `json:"url"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, strings.HasSuffix(resp.Data.Filename, ".jpg"))
	assert.Equal(t, "/api/files/view/"+resp.Data.Filename, resp.Data.URL)

	// 文件确实落盘
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileHandler_Upload_InvalidType(t *testing.T) {
	setupTestConfig(t)
	r, dir := newFileRouter(t)

	body, contentType := multipartUpload(t, "text/plain", []byte("not-an-image"))
	req := httptest.NewRequest("POST", "/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), CodeInvalidFileType)

	// 校验失败时不应有任何文件落盘
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileHandler_Upload_MissingFile(t *testing.T) {
	setupTestConfig(t)
	r, _ := newFileRouter(t)

	w := doJSON(r, "POST", "/files/upload", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), CodeValidationError)
}

func TestFileHandler_View(t *testing.T) {
	setupTestConfig(t)
	r, dir := newFileRouter(t)

	require.NoError(t, os.WriteFile(dir+"/r1.png", []byte("png-bytes"), 0o644))

	w := doJSON(r, "GET", "/files/view/r1.png", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "inline")
	assert.Equal(t, "png-bytes", w.Body.String())
}

func TestFileHandler_View_NotFound(t *testing.T) {
	setupTestConfig(t)
	r, _ := newFileRouter(t)

	w := doJSON(r, "GET", "/files/view/missing.png", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), CodeFileNotFound)
}

func TestFileHandler_Delete_InvalidFilename(t *testing.T) {
	setupTestConfig(t)
	r, _ := newFileRouter(t)

	// 不符合安全字符集的文件名被拦截
	w := doJSON(r, "DELETE", "/files/.hidden", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), CodeInvalidFilename)
}
