// Package preview 将上传的简历转换为 PDF 供浏览器预览
package preview

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mautops/talent-gin/internal/config"
	"github.com/mautops/talent-gin/internal/logger"
	"github.com/mautops/talent-gin/internal/metrics"
)

var (
	// ErrUnsupportedType 不支持的文件类型
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTimeout 转换超时，进程已被终止
	ErrTimeout = errors.New("conversion timed out")
	// ErrConversionFailed 转换进程失败或未产出文件
	ErrConversionFailed = errors.New("conversion failed")
)

// 转换器不支持并发调用，所有转换在进程内串行
var conversionMu sync.Mutex

var supportedTypes = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".odt":  true,
	".rtf":  true,
	".txt":  true,
}

// Converter 调用外部转换程序生成 PDF
type Converter struct {
	binary  string
	timeout time.Duration
	workDir string
}

// NewConverter 创建转换器
func NewConverter(cfg config.PreviewConfig) *Converter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Converter{binary: cfg.Binary, timeout: timeout, workDir: cfg.WorkDir}
}

// Supported 判断文件扩展名是否支持
func Supported(filename string) bool {
	return supportedTypes[strings.ToLower(filepath.Ext(filename))]
}

// Convert 将文件转换为 PDF，PDF 原样返回
func (c *Converter) Convert(ctx context.Context, filename string, data []byte) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !supportedTypes[ext] {
		return nil, ErrUnsupportedType
	}
	if ext == ".pdf" {
		return data, nil
	}

	conversionMu.Lock()
	defer conversionMu.Unlock()

	start := time.Now()
	out, err := c.run(ctx, ext, data)
	log := logger.FromContext(ctx).WithField("file", filepath.Base(filename)).WithField("duration", time.Since(start).String())
	switch {
	case errors.Is(err, ErrTimeout):
		metrics.RecordPreviewConversion("timeout")
		log.Warn("Resume conversion timed out")
	case err != nil:
		metrics.RecordPreviewConversion("failed")
		log.WithError(err).Warn("Resume conversion failed")
	default:
		metrics.RecordPreviewConversion("success")
		log.Debug("Resume converted")
	}
	return out, err
}

func (c *Converter) run(ctx context.Context, ext string, data []byte) ([]byte, error) {
	dir, err := os.MkdirTemp(c.workDir, "preview-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	// 使用固定文件名，上传的文件名不进入命令行
	input := filepath.Join(dir, "input"+ext)
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write input: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.binary, "--headless", "--convert-to", "pdf", "--outdir", dir, input)
	cmd.Dir = dir
	// 子进程持有管道时不无限等待
	cmd.WaitDelay = time.Second
	output, err := cmd.CombinedOutput()
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, ErrTimeout
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrConversionFailed, err, strings.TrimSpace(string(output)))
	}

	pdf, err := os.ReadFile(filepath.Join(dir, "input.pdf"))
	if err != nil {
		return nil, fmt.Errorf("%w: no output produced", ErrConversionFailed)
	}
	return pdf, nil
}
