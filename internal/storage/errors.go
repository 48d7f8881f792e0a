package storage

import (
	"errors"
	"net/http"

	"github.com/minio/minio-go/v7"
)

var (
	// ErrObjectNotFound 表示对象不存在。
	ErrObjectNotFound = errors.New("storage: object not found")
	// ErrObjectTooLarge 表示对象超过调用方给定的读取上限。
	ErrObjectTooLarge = errors.New("storage: object too large")
)

// IsNoSuchKey 判断错误是否表示对象（或 Bucket 中的 key）不存在。
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrObjectNotFound) {
		return true
	}
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return false
	}
	switch resp.Code {
	case "NoSuchKey", "NotFound", "NoSuchObject":
		return true
	}
	return resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket"
}
