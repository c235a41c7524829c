package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/spherical/pitch-analyzer/internal/domain"
)

// DefaultMaxFileBytes is the default upper bound on deck size.
const DefaultMaxFileBytes = 100 * 1024 * 1024

// Validator checks that a path points to a readable PDF document.
type Validator struct {
	maxFileBytes int64
}

// NewValidator creates a new validator. A non-positive limit selects the default.
func NewValidator(maxFileBytes int64) *Validator {
	if maxFileBytes <= 0 {
		maxFileBytes = DefaultMaxFileBytes
	}
	return &Validator{maxFileBytes: maxFileBytes}
}

// ValidatePath validates that path is an existing, readable .pdf file
// within the size limit.
func (v *Validator) ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.DocumentReadError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.DocumentReadError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.DocumentReadError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.DocumentReadError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" {
		return domain.DocumentReadError(fmt.Sprintf("file is not a PDF (has extension %s)", ext), nil)
	}

	if info.Size() > v.maxFileBytes {
		return domain.DocumentReadError(fmt.Sprintf("PDF is %d MB, limit is %d MB",
			info.Size()/(1024*1024), v.maxFileBytes/(1024*1024)), nil)
	}

	file, err := os.Open(path)
	if err != nil {
		return domain.DocumentReadError(fmt.Sprintf("cannot open file: %s", path), err)
	}
	file.Close()

	return nil
}

// PageCount reads the document structure with pdfcpu and returns the number
// of pages. A pdfcpu panic on a damaged file is returned as an error.
func (v *Validator) PageCount(path string) (count int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			count = 0
			err = domain.DocumentReadError("PDF structure is invalid", fmt.Errorf("pdfcpu panic: %v", rec))
		}
	}()

	count, err = api.PageCountFile(path)
	if err != nil {
		return 0, domain.DocumentReadError("PDF structure is invalid", err)
	}
	if count == 0 {
		return 0, domain.DocumentReadError("PDF has no pages", nil)
	}
	return count, nil
}

// ValidateQuality validates the JPEG quality parameter
func ValidateQuality(quality int) error {
	if quality < 1 || quality > 100 {
		return domain.ValidationError(fmt.Sprintf("quality must be between 1 and 100, got %d", quality), nil)
	}
	return nil
}
