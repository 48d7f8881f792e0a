package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dutchcoders/go-clamd"
)

// ErrInfected 表示上传内容未通过病毒扫描。
var ErrInfected = errors.New("storage: malicious file detected")

// Scanner 在上传前检查内容。
type Scanner interface {
	Scan(ctx context.Context, data []byte) error
}

// NopScanner 不做任何检查，用于未配置 clamd 的环境。
type NopScanner struct{}

// Scan 实现 Scanner。
func (NopScanner) Scan(context.Context, []byte) error { return nil }

// ClamdScanner 通过 clamd 的 INSTREAM 扫描内容。
type ClamdScanner struct {
	addr string
}

// NewScanner 返回 clamd 扫描器；地址为空时返回 NopScanner。
func NewScanner(addr string) Scanner {
	if strings.TrimSpace(addr) == "" {
		return NopScanner{}
	}
	return &ClamdScanner{addr: addr}
}

// Scan 实现 Scanner。
func (s *ClamdScanner) Scan(ctx context.Context, data []byte) error {
	client := clamd.NewClamd(s.addr)
	abort := make(chan bool)
	results, err := client.ScanStream(bytes.NewReader(data), abort)
	if err != nil {
		return fmt.Errorf("scan upload: %w", err)
	}
	defer close(abort)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case result, ok := <-results:
			if !ok {
				return nil
			}
			if result.Status == clamd.RES_FOUND {
				return fmt.Errorf("%w: %s", ErrInfected, result.Description)
			}
			if result.Status != clamd.RES_OK {
				return fmt.Errorf("scan upload: %s", result.Status)
			}
		}
	}
}
