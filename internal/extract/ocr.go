package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

const defaultOCRTimeout = 120 * time.Second

// OCR runs an external OCR command against a file and captures its stdout
// as text. The command is configured (e.g. "tesseract {input} stdout" or a
// wrapper script); failures degrade to an empty string so a bad scan never
// hard-fails an ingestion.
type OCR struct {
	command string
	timeout time.Duration
}

// NewOCR builds an OCR runner. command is a shell-free argv template where
// the placeholder {input} is replaced with the file path; when the
// placeholder is absent the path is appended as the last argument.
func NewOCR(command string, timeout time.Duration) (*OCR, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("ocr command required")
	}
	if timeout <= 0 {
		timeout = defaultOCRTimeout
	}
	return &OCR{command: command, timeout: timeout}, nil
}

// ExtractText runs the configured command and returns its normalized output.
// Returns an empty string on any failure.
func (o *OCR) ExtractText(ctx context.Context, path string) string {
	args := strings.Fields(o.command)
	if len(args) == 0 {
		return ""
	}
	replaced := false
	for i, arg := range args {
		if arg == "{input}" {
			args[i] = path
			replaced = true
		}
	}
	if !replaced {
		args = append(args, path)
	}
	runCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	output, err := cmd.Output()
	if err != nil {
		slog.Warn("ocr command failed", "command", args[0], "err", err)
		return ""
	}
	return normalizeText(string(output))
}
