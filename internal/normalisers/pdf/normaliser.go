// Package pdf extracts text from PDF files. It shells out to pdftotext
// (poppler) when installed and otherwise falls back to a pure-Go reader.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	gopdf "github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

const toolName = "pdftotext"

// maxTitleLength bounds the first-line title heuristic.
const maxTitleLength = 200

// CommandRunner executes external commands.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

// Normaliser extracts text from PDF files.
type Normaliser struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
	fallback func(path string) (string, error)
}

// New creates a PDF normaliser that uses pdftotext when available.
func New() *Normaliser {
	return &Normaliser{
		runner:   execRunner{},
		lookPath: exec.LookPath,
		fallback: readPlainText,
	}
}

// NewWithRunner creates a normaliser that always uses runner, as if
// pdftotext were installed.
func NewWithRunner(runner CommandRunner) *Normaliser {
	n := New()
	n.runner = runner
	n.lookPath = func(name string) (string, error) { return name, nil }
	return n
}

// CheckAvailable reports whether pdftotext is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions describes how to install pdftotext.
func InstallInstructions() string {
	return `pdftotext gives the best PDF text extraction. Install poppler:
  macOS:         brew install poppler
  Debian/Ubuntu: apt install poppler-utils
  Fedora:        dnf install poppler-utils
Without it docrag falls back to a built-in reader that may miss text.`
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the text of the PDF at path. Any failure is
// reported as a *domain.ExtractionError.
func (n *Normaliser) Normalise(ctx context.Context, path string) (*driven.NormaliseResult, error) {
	if path == "" {
		return nil, &domain.ExtractionError{Path: path, Err: domain.ErrInvalidInput}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &domain.ExtractionError{Path: path, Err: err}
	}

	extractor := "pdftotext"
	var content string
	if _, err := n.lookPath(toolName); err == nil {
		out, err := n.runner.Run(ctx, toolName, "-layout", "-enc", "UTF-8", path, "-")
		if err != nil {
			return nil, &domain.ExtractionError{Path: path, Err: fmt.Errorf("pdftotext failed: %w", err)}
		}
		content = string(out)
	} else {
		extractor = "builtin"
		text, err := n.fallback(path)
		if err != nil {
			return nil, &domain.ExtractionError{Path: path, Err: err}
		}
		content = text
	}

	content = strings.ToValidUTF8(content, "")
	return &driven.NormaliseResult{
		Document: domain.Document{
			Path:    path,
			Source:  filepath.Base(path),
			Title:   extractTitle(content, path),
			Content: content,
			Metadata: map[string]any{
				"format":    "pdf",
				"extractor": extractor,
			},
		},
	}, nil
}

// readPlainText extracts text with the pure-Go reader. The reader panics
// on some malformed inputs; that is reported as an error.
func readPlainText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := gopdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// extractTitle uses the first short non-empty line, else the file name.
func extractTitle(content, path string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > maxTitleLength || strings.ContainsRune(line, 0) {
			continue
		}
		return line
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
