package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bookmapper/backend/internal/metrics"
	"github.com/bookmapper/backend/models"
	"github.com/rs/zerolog"
)

// ErrNotPDF is returned before any upload attempt when the filename does not
// carry a .pdf extension.
var ErrNotPDF = errors.New("only PDF allowed")

// Uploader stores a file in remote object storage and returns its secure URL.
type Uploader interface {
	Upload(ctx context.Context, originalFilename string, body io.Reader, contentType string) (string, error)
}

// UploadResolver turns an uploaded PDF into a single persistable reference.
// Remote storage is tried first; any remote failure is absorbed by a one-shot
// fallback to the local upload directory. Remote errors never reach the
// caller, only validation and local-write errors do.
type UploadResolver struct {
	remote  Uploader // nil means local-only
	dir     string
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewUploadResolver(remote Uploader, dir string, log zerolog.Logger, m *metrics.Metrics) *UploadResolver {
	return &UploadResolver{remote: remote, dir: dir, log: log, metrics: m}
}

// Resolve uploads the file and returns its reference. The second return is
// true when the remote path was skipped or failed and the file landed on
// local disk.
func (u *UploadResolver) Resolve(ctx context.Context, filename string, file io.Reader) (models.PDFRef, bool, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return models.PDFRef{}, false, ErrNotPDF
	}

	// Buffer once so the bytes survive a failed remote attempt.
	data, err := io.ReadAll(file)
	if err != nil {
		return models.PDFRef{}, false, fmt.Errorf("read upload: %w", err)
	}

	remoteFailed := false
	if u.remote != nil {
		url, err := u.remote.Upload(ctx, filename, bytes.NewReader(data), "application/pdf")
		if err == nil {
			u.metrics.RemoteUploadsTotal.Inc()
			return models.PDFRef{Kind: models.PDFRemote, Value: url}, false, nil
		}
		remoteFailed = true
		u.log.Warn().Err(err).Str("filename", filename).Msg("remote upload failed, falling back to local storage")
	}

	name, err := u.saveLocal(filename, data)
	if err != nil {
		return models.PDFRef{}, true, err
	}
	u.metrics.LocalUploadsTotal.Inc()
	if remoteFailed {
		// Only an actual failed remote attempt counts as degradation; a
		// local-only deployment saving locally is normal operation.
		u.metrics.UploadFallbacksTotal.Inc()
	}
	return models.PDFRef{Kind: models.PDFLocal, Value: name}, true, nil
}

func (u *UploadResolver) saveLocal(filename string, data []byte) (string, error) {
	name := fmt.Sprintf("%d_%s", time.Now().Unix(), SanitizeFilename(filename))
	if err := os.WriteFile(filepath.Join(u.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return name, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename strips path components and characters unsafe in a
// filesystem name or a URL path segment.
func SanitizeFilename(filename string) string {
	name := filepath.Base(filepath.Clean(filename))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	return name
}
