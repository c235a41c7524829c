// Package pdf renders PDF pages to JPEG images using MuPDF.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"

	"github.com/spherical/pitch-analyzer/internal/domain"
	"github.com/spherical/pitch-analyzer/internal/observability"
)

const (
	DefaultDPI         = 150
	DefaultJPEGQuality = 85
)

// Options configures page rendering.
type Options struct {
	DPI          float64
	JPEGQuality  int
	MaxFileBytes int64
}

// Rasterizer implements domain.Rasterizer using go-fitz.
type Rasterizer struct {
	validator *Validator
	dpi       float64
	quality   int
	logger    *observability.Logger
}

var _ domain.Rasterizer = (*Rasterizer)(nil)

// NewRasterizer creates a new rasterizer.
func NewRasterizer(opts Options, logger *observability.Logger) (*Rasterizer, error) {
	if opts.DPI <= 0 {
		opts.DPI = DefaultDPI
	}
	if opts.JPEGQuality == 0 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	if err := ValidateQuality(opts.JPEGQuality); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Rasterizer{
		validator: NewValidator(opts.MaxFileBytes),
		dpi:       opts.DPI,
		quality:   opts.JPEGQuality,
		logger:    logger.WithOperation("rasterize"),
	}, nil
}

// Rasterize renders every page of the PDF at pdfPath. The result has one
// image per page in page order; any failure discards partial output.
func (r *Rasterizer) Rasterize(ctx context.Context, pdfPath string) ([]domain.PageImage, error) {
	if err := r.validator.ValidatePath(pdfPath); err != nil {
		return nil, err
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, domain.DocumentReadError("failed to open PDF", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, domain.DocumentReadError("PDF has no pages", nil)
	}
	r.crossCheck(pdfPath, pageCount)

	images := make([]domain.PageImage, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(pageNum, r.dpi)
		if err != nil {
			return nil, domain.DocumentReadError(fmt.Sprintf("failed to render page %d", pageNum+1), err)
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.quality}); err != nil {
			return nil, domain.DocumentReadError(fmt.Sprintf("failed to encode page %d as JPEG", pageNum+1), err)
		}

		bounds := img.Bounds()
		images = append(images, domain.PageImage{
			PageNumber: pageNum + 1,
			Data:       buf.Bytes(),
			MIMEType:   "image/jpeg",
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
		})
	}

	r.logger.Debug().
		Str("path", pdfPath).
		Int("pages", len(images)).
		Float64("dpi", r.dpi).
		Msg("Rendered PDF")

	return images, nil
}

// crossCheck compares the MuPDF page count with pdfcpu's reading of the
// document structure. Disagreement is logged; the MuPDF count wins.
func (r *Rasterizer) crossCheck(pdfPath string, pageCount int) {
	expected, err := r.validator.PageCount(pdfPath)
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("path", pdfPath).
			Int("mupdf_pages", pageCount).
			Msg("Structure check failed, rendering with MuPDF")
		return
	}
	if expected != pageCount {
		r.logger.Warn().
			Int("pdfcpu_pages", expected).
			Int("mupdf_pages", pageCount).
			Msg("Page count mismatch, using rendered count")
	}
}
