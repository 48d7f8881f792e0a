package storage

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"resumeEditor/internal/resume"
)

const (
	photoPrefix = "photos"
	pdfPrefix   = "pdfs"
	maxKeyLen   = 255
)

// NewPhotoKey 为一次照片上传生成对象键：photos/<user>/<resume>/<uuid><ext>。
func NewPhotoKey(userID, resumeID, contentType string) (string, error) {
	ext, ok := resume.PhotoExtension(contentType)
	if !ok {
		return "", fmt.Errorf("unsupported photo content type %q", contentType)
	}
	return fmt.Sprintf("%s/%s/%s/%s%s", photoPrefix, userID, resumeID, uuid.NewString(), ext), nil
}

// NewPDFKey 生成 PDF 对象键：pdfs/<user>/<resume>/<uuid>.pdf。
func NewPDFKey(userID, resumeID string) string {
	return fmt.Sprintf("%s/%s/%s/%s.pdf", pdfPrefix, userID, resumeID, uuid.NewString())
}

// IsManagedKey 校验对象键由本服务生成：photos/ 或 pdfs/ 前缀、带用户段，且不含路径穿越等异常片段。
func IsManagedKey(key string) bool {
	return keyOwner(key) != ""
}

// IsOwnedKey 校验对象键由本服务生成且属于该用户。
func IsOwnedKey(userID, key string) bool {
	return userID != "" && keyOwner(key) == userID
}

func keyOwner(key string) string {
	if key == "" || !utf8.ValidString(key) || len(key) > maxKeyLen {
		return ""
	}
	if strings.Contains(key, "..") || strings.Contains(key, "\\") || strings.Contains(key, "//") {
		return ""
	}
	parts := strings.SplitN(key, "/", 3)
	if len(parts) < 3 || parts[1] == "" || parts[2] == "" {
		return ""
	}
	if parts[0] != photoPrefix && parts[0] != pdfPrefix {
		return ""
	}
	return parts[1]
}
