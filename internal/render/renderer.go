package render

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"

	"cartie-training-service/internal/domain"
)

// ArtifactStore persists a rendered certificate and returns its durable URL.
type ArtifactStore interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// CertificateRenderer draws the certificate PNG and hands it to the
// artifact store. Render completes fully before anything is persisted by
// the caller, so a failure here leaves no partial certificate behind.
type CertificateRenderer struct {
	store ArtifactStore
}

func NewCertificateRenderer(store ArtifactStore) *CertificateRenderer {
	return &CertificateRenderer{store: store}
}

const (
	canvasWidth  = 1200
	canvasHeight = 850
)

func (r *CertificateRenderer) Render(ctx context.Context, fields domain.CertificateFields) (string, error) {
	dc := gg.NewContext(canvasWidth, canvasHeight)

	dc.SetColor(color.White)
	dc.DrawRectangle(0, 0, canvasWidth, canvasHeight)
	dc.Fill()

	dc.SetRGB(0.13, 0.23, 0.42)
	dc.SetLineWidth(6)
	dc.DrawRectangle(30, 30, canvasWidth-60, canvasHeight-60)
	dc.Stroke()

	cx := float64(canvasWidth) / 2
	dc.SetRGB(0.13, 0.23, 0.42)
	dc.DrawStringAnchored(fields.Name, cx, 180, 0.5, 0.5)
	dc.DrawStringAnchored("Awarded to", cx, 280, 0.5, 0.5)
	dc.DrawStringAnchored(fields.Email, cx, 330, 0.5, 0.5)
	dc.DrawStringAnchored("Certificate No. "+fields.Number, cx, 430, 0.5, 0.5)
	dc.DrawStringAnchored(
		fmt.Sprintf("Issued %s - Valid until %s",
			fields.IssueDate.Format("Jan 2, 2006"),
			fields.ValidUntil.Format("Jan 2, 2006")),
		cx, 490, 0.5, 0.5)
	dc.DrawStringAnchored("Issued by "+fields.IssuedBy, cx, 640, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return "", fmt.Errorf("encode certificate png: %w", err)
	}

	name := artifactName(fields.Number)
	url, err := r.store.Put(ctx, name, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("store certificate artifact: %w", err)
	}
	return url, nil
}

func artifactName(number string) string {
	return strings.ToLower(strings.ReplaceAll(number, "-", "_")) + ".png"
}

// FileStore writes artifacts under a directory and serves URLs beneath a
// base URL; the production deployment swaps this for object storage.
type FileStore struct {
	dir     string
	baseURL string
}

func NewFileStore(dir, baseURL string) *FileStore {
	return &FileStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *FileStore) Put(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return s.baseURL + "/" + name, nil
}
