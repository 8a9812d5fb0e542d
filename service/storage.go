package service

import (
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"ledger/config"

	"github.com/google/uuid"
)

// 文件名只允许安全字符，拒绝路径穿越
var safeFilenamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// 存储层错误，接口层据此映射错误码
var (
	ErrInvalidFilename = errors.New("非法的文件名")
	ErrInvalidFileType = errors.New("不支持的文件类型")
	ErrFileTooLarge    = errors.New("文件超过大小限制")
	ErrFileNotFound    = errors.New("文件不存在")
)

// FileStore 票据文件存储
// 上传文件统一落在配置目录下，文件名为随机ID加原始扩展名
type FileStore struct {
	dir          string
	maxSize      int64
	allowedTypes map[string]bool
}

// StoredFile 存储文件信息
type StoredFile struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	UpdatedAt string `json:"updated_at"`
}

// NewFileStore 创建文件存储，确保目录存在
func NewFileStore(cfg *config.UploadConfig) (*FileStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	allowed := make(map[string]bool, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[strings.ToLower(t)] = true
	}
	return &FileStore{
		dir:          cfg.Dir,
		maxSize:      cfg.MaxSizeMB * 1024 * 1024,
		allowedTypes: allowed,
	}, nil
}

// Validate 校验上传文件的大小与 MIME 类型
func (s *FileStore) Validate(fh *multipart.FileHeader) error {
	if fh.Size > s.maxSize {
		return ErrFileTooLarge
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(fh.Header.Get("Content-Type"), ";", 2)[0]))
	if !s.allowedTypes[ct] {
		return ErrInvalidFileType
	}
	return nil
}

// GenerateName 为上传文件生成唯一存储名：随机ID + 原始扩展名
func (s *FileStore) GenerateName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !regexp.MustCompile(`^\.[a-z0-9]+$`).MatchString(ext) {
		ext = ""
	}
	return uuid.NewString() + ext
}

// Path 解析文件名到磁盘路径，拒绝非法文件名
func (s *FileStore) Path(filename string) (string, error) {
	if !safeFilenamePattern.MatchString(filename) || strings.Contains(filename, "..") {
		return "", ErrInvalidFilename
	}
	return filepath.Join(s.dir, filename), nil
}

// Stat 返回文件信息，文件不存在时返回 ErrFileNotFound
func (s *FileStore) Stat(filename string) (*StoredFile, error) {
	path, err := s.Path(filename)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return &StoredFile{
		Filename:  filename,
		Size:      info.Size(),
		UpdatedAt: info.ModTime().Format("2006-01-02 15:04:05"),
	}, nil
}

// Delete 删除存储文件，文件不存在时返回 ErrFileNotFound
func (s *FileStore) Delete(filename string) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrFileNotFound
		}
		return err
	}
	return nil
}

// DeleteByURL 按票据 URL 删除底层文件（取 URL 末段为文件名）
// 交易更新/删除时的善后清理走这里
func (s *FileStore) DeleteByURL(receiptURL string) error {
	name := filepath.Base(strings.TrimSpace(receiptURL))
	if name == "" || name == "." || name == "/" {
		return ErrInvalidFilename
	}
	return s.Delete(name)
}

// List 列出存储目录下的所有文件
func (s *FileStore) List() ([]StoredFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	files := make([]StoredFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, StoredFile{
			Filename:  e.Name(),
			Size:      info.Size(),
			UpdatedAt: info.ModTime().Format("2006-01-02 15:04:05"),
		})
	}
	return files, nil
}

// ContentTypeByExt 按扩展名推断票据的 Content-Type
func ContentTypeByExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
