package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	renderTimeout  = 30 * time.Second
	fontsReadyWait = 5 * time.Second
)

// 自托管字体最多等待 4 秒，超时后按回退字体导出。
const fontsReadyScript = `() => {
  if (!document.fonts || !document.fonts.ready) return true;
  return Promise.race([
    document.fonts.ready.then(() => true),
    new Promise((resolve) => setTimeout(() => resolve(false), 4000)),
  ]);
}`

// ErrRendererClosed 表示 Renderer 已关闭。
var ErrRendererClosed = errors.New("pdf: renderer closed")

// Renderer 在多个任务之间复用同一个无头 Chromium。
// 每次渲染使用独立的标签页；浏览器连接失效时在下一次渲染前重新启动。
type Renderer struct {
	logger *slog.Logger

	mu      sync.Mutex
	launch  *launcher.Launcher
	browser *rod.Browser
	closed  bool
}

func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{logger: logger.With(slog.String("component", "pdf"))}
}

// Render 把一份自包含的打印 HTML 导出为 PDF。
// 页面尺寸由文档中的 @page 规则决定，照片等资源须已内联。
func (r *Renderer) Render(ctx context.Context, html string) ([]byte, error) {
	browser, err := r.ensureBrowser()
	if err != nil {
		return nil, err
	}

	data, err := renderPage(ctx, browser, html, r.logger)
	if err != nil && ctx.Err() == nil {
		// 浏览器可能已经崩溃；丢弃后让下一次渲染重新启动。
		r.reset(browser)
	}
	return data, err
}

// Close 关闭浏览器进程，之后的 Render 返回 ErrRendererClosed。
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return r.shutdownLocked()
}

func (r *Renderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRendererClosed
	}
	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New().Headless(true).NoSandbox(true)
	if bin, ok := launcher.LookPath(); ok {
		l = l.Bin(bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	r.launch, r.browser = l, browser
	r.logger.Info("chromium started")
	return browser, nil
}

func (r *Renderer) reset(failed *rod.Browser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != failed {
		return
	}
	if err := r.shutdownLocked(); err != nil {
		r.logger.Warn("close chromium failed", slog.Any("error", err))
	}
}

func (r *Renderer) shutdownLocked() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launch != nil {
		r.launch.Cleanup()
		r.launch = nil
	}
	return err
}

func renderPage(ctx context.Context, browser *rod.Browser, html string, logger *slog.Logger) ([]byte, error) {
	page, err := browser.Context(ctx).Timeout(renderTimeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("load print html: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	if _, err := page.Timeout(fontsReadyWait).Eval(fontsReadyScript); err != nil {
		logger.WarnContext(ctx, "fonts not ready, exporting with fallback", slog.Any("error", err))
	}
	if err := (proto.EmulationSetEmulatedMedia{Media: "print"}).Call(page); err != nil {
		return nil, fmt.Errorf("emulate print media: %w", err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	defer func() { _ = stream.Close() }()

	out, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	return out, nil
}
