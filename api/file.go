package api

import (
	"errors"
	"net/http"

	"ledger/service"

	"github.com/gin-gonic/gin"
)

// FileHandler 票据文件处理器
type FileHandler struct {
	store *service.FileStore
}

// NewFileHandler 创建文件处理器
func NewFileHandler(store *service.FileStore) *FileHandler {
	return &FileHandler{store: store}
}

// Upload 上传票据文件
// @Summary 上传票据文件
// @Description 上传票据图片或 PDF，返回可写入交易 receipt_url 的访问路径
// @Tags 文件
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "票据文件"
// @Success 200 {object} Response "上传成功"
// @Failure 400 {object} Response "文件类型不支持或超过大小限制"
// @Router /api/files/upload [post]
func (h *FileHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, CodeValidationError, "缺少文件字段 file")
		return
	}

	if err := h.store.Validate(fh); err != nil {
		switch {
		case errors.Is(err, service.ErrFileTooLarge):
			BadRequest(c, CodeFileTooLarge, "文件超过大小限制")
		case errors.Is(err, service.ErrInvalidFileType):
			BadRequest(c, CodeInvalidFileType, "不支持的文件类型")
		default:
			BadRequest(c, CodeValidationError, err.Error())
		}
		return
	}

	filename := h.store.GenerateName(fh.Filename)
	path, err := h.store.Path(filename)
	if err != nil {
		InternalError(c, CodeInternalError, "生成存储路径失败")
		return
	}
	if err := c.SaveUploadedFile(fh, path); err != nil {
		InternalError(c, CodeInternalError, SafeErrorMessage(err, "保存文件失败"))
		return
	}

	SuccessWithMessage(c, "上传成功", gin.H{
		"filename": filename,
		"size":     fh.Size,
		"url":      "/api/files/view/" + filename,
	})
}

// List 文件列表
// @Summary 文件列表
// @Description 列出存储目录下的全部票据文件，管理员与经理可用
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]service.StoredFile} "查询成功"
// @Failure 403 {object} Response "权限不足"
// @Router /api/files [get]
func (h *FileHandler) List(c *gin.Context) {
	files, err := h.store.List()
	if err != nil {
		InternalError(c, CodeInternalError, SafeErrorMessage(err, "读取文件列表失败"))
		return
	}
	Success(c, files)
}

// Get 查询文件信息
// @Summary 查询文件信息
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param filename path string true "文件名"
// @Success 200 {object} Response{data=service.StoredFile} "查询成功"
// @Failure 400 {object} Response "非法文件名"
// @Failure 404 {object} Response "文件不存在"
// @Router /api/files/{filename} [get]
func (h *FileHandler) Get(c *gin.Context) {
	info, err := h.store.Stat(c.Param("filename"))
	if err != nil {
		respondFileError(c, err)
		return
	}
	Success(c, info)
}

// Delete 删除文件
// @Summary 删除文件
// @Description 删除存储的票据文件，管理员与经理可用
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param filename path string true "文件名"
// @Success 200 {object} Response "删除成功"
// @Failure 400 {object} Response "非法文件名"
// @Failure 404 {object} Response "文件不存在"
// @Router /api/files/{filename} [delete]
func (h *FileHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Param("filename")); err != nil {
		respondFileError(c, err)
		return
	}
	SuccessWithMessage(c, "文件删除成功", nil)
}

// View 查看票据文件
// @Summary 查看票据文件
// @Description 返回票据文件内容，需要登录；供前端 img/iframe 内嵌展示
// @Tags 文件
// @Produce octet-stream
// @Security BearerAuth
// @Param filename path string true "文件名"
// @Success 200 {file} binary "文件内容"
// @Failure 400 {object} Response "非法文件名"
// @Failure 404 {object} Response "文件不存在"
// @Router /api/files/view/{filename} [get]
func (h *FileHandler) View(c *gin.Context) {
	filename := c.Param("filename")

	path, err := h.store.Path(filename)
	if err != nil {
		respondFileError(c, err)
		return
	}
	if _, err := h.store.Stat(filename); err != nil {
		respondFileError(c, err)
		return
	}

	// 内嵌展示相关的响应头：类型按扩展名推断，允许 iframe 加载
	c.Header("Content-Type", service.ContentTypeByExt(filename))
	c.Header("Content-Disposition", "inline; filename=\""+filename+"\"")
	c.Header("Cache-Control", "private, max-age=3600")
	c.Header("X-Frame-Options", "SAMEORIGIN")
	c.File(path)
}

// respondFileError 将存储层错误映射为响应
func respondFileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidFilename):
		BadRequest(c, CodeInvalidFilename, "非法的文件名")
	case errors.Is(err, service.ErrFileNotFound):
		NotFound(c, CodeFileNotFound, "文件不存在")
	default:
		Fail(c, http.StatusInternalServerError, CodeInternalError, SafeErrorMessage(err, "文件操作失败"))
	}
}
