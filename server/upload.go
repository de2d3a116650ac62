package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"auralis/core/apperr"
	"auralis/core/music"
	"auralis/logger"
	"auralis/storage"

	"github.com/google/uuid"
)

const (
	multipartMemory = 1 << 20  // 超出部分由 mime/multipart 写入临时文件
	maxJSONBody     = 10 << 20 // 普通 JSON 请求体上限
)

// upload 一次 multipart 请求中暂存到 TEMP_DIR 的文件
type upload struct {
	h     *APIHandler
	r     *http.Request
	paths []string
}

// parseUpload 解析 multipart 表单；非 multipart 请求视为没有文件
func (h *APIHandler) parseUpload(w http.ResponseWriter, r *http.Request, files int) (*upload, error) {
	// 每个文件单独限制大小，这里只限制整个请求体
	r.Body = http.MaxBytesReader(w, r.Body, int64(files)*h.cfg.MaxUploadSize+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart):
		case errors.As(err, &tooLarge):
			return nil, apperr.Invalid(fmt.Sprintf("Upload exceeds the %s limit", storage.FormatSize(h.cfg.MaxUploadSize)))
		default:
			return nil, apperr.Invalid("Invalid multipart form")
		}
	}
	return &upload{h: h, r: r}, nil
}

// File 把表单文件复制到 TEMP_DIR，字段缺失时返回 nil
func (u *upload) File(field string) (*music.UploadFile, error) {
	if u.r.MultipartForm == nil || len(u.r.MultipartForm.File[field]) == 0 {
		return nil, nil
	}
	fh := u.r.MultipartForm.File[field][0]
	if fh.Size > u.h.cfg.MaxUploadSize {
		return nil, apperr.Invalid(fmt.Sprintf("File %s exceeds the %s limit", fh.Filename, storage.FormatSize(u.h.cfg.MaxUploadSize)))
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open form file %s: %w", field, err)
	}
	defer src.Close()

	if err := os.MkdirAll(u.h.cfg.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	path := filepath.Join(u.h.cfg.TempDir, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}
	u.paths = append(u.paths, path)

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return nil, fmt.Errorf("stage %s: %w", field, err)
	}
	if err := dst.Close(); err != nil {
		return nil, fmt.Errorf("stage %s: %w", field, err)
	}

	return &music.UploadFile{
		Path:        path,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
	}, nil
}

// Value 表单字段
func (u *upload) Value(key string) string {
	return u.r.FormValue(key)
}

// Cleanup 删除暂存文件和 multipart 临时文件
func (u *upload) Cleanup() {
	for _, p := range u.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove staged file", logger.String("path", p), logger.ErrorField(err))
		}
	}
	if u.r.MultipartForm != nil {
		_ = u.r.MultipartForm.RemoveAll()
	}
}
