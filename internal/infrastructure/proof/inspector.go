package proof

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/garyjia/procurement/internal/application/port"
	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// DefaultMaxBytes bounds the size of an uploaded proof
const DefaultMaxBytes = 20 << 20

// Inspector accepts PDF scans and photos of a signed BAST.
// PDFs are opened with MuPDF to confirm they are readable and not empty.
type Inspector struct {
	maxBytes int
	maxPages int
	logger   *zap.Logger
}

// NewInspector creates a proof inspector. maxPages <= 0 disables the page limit.
func NewInspector(maxBytes, maxPages int, logger *zap.Logger) *Inspector {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Inspector{maxBytes: maxBytes, maxPages: maxPages, logger: logger}
}

// Inspect validates the proof and reports its content type and page count
func (i *Inspector) Inspect(ctx context.Context, filename string, content []byte) (*port.ProofInfo, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("proof file is empty")
	}
	if len(content) > i.maxBytes {
		return nil, fmt.Errorf("proof file is %d bytes, limit is %d", len(content), i.maxBytes)
	}

	contentType := http.DetectContentType(content)
	switch {
	case contentType == "application/pdf":
		pages, err := i.countPages(content)
		if err != nil {
			return nil, err
		}
		return &port.ProofInfo{ContentType: contentType, Pages: pages}, nil

	case contentType == "image/jpeg" || contentType == "image/png":
		return &port.ProofInfo{ContentType: contentType, Pages: 1}, nil

	default:
		ext := strings.ToLower(filepath.Ext(filename))
		return nil, fmt.Errorf("unsupported proof type %s (%s), expected PDF, JPEG or PNG", contentType, ext)
	}
}

func (i *Inspector) countPages(content []byte) (int, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages == 0 {
		return 0, fmt.Errorf("PDF has no pages")
	}
	if i.maxPages > 0 && pages > i.maxPages {
		return 0, fmt.Errorf("PDF has %d pages, limit is %d", pages, i.maxPages)
	}

	i.logger.Debug("Inspected BAST proof", zap.Int("pages", pages), zap.Int("size", len(content)))
	return pages, nil
}

var _ port.ProofInspector = (*Inspector)(nil)
