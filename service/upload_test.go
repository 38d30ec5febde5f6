package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bookmapper/backend/internal/metrics"
	"github.com/bookmapper/backend/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	url   string
	err   error
	calls int
}

func (f *fakeUploader) Upload(ctx context.Context, filename string, body io.Reader, contentType string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func newTestResolver(t *testing.T, remote Uploader) *UploadResolver {
	t.Helper()
	m := metrics.NewWith(prometheus.NewRegistry())
	return NewUploadResolver(remote, t.TempDir(), zerolog.Nop(), m)
}

func TestResolveRemoteSuccess(t *testing.T) {
	remote := &fakeUploader{url: "https://bucket.s3.us-east-1.amazonaws.com/bookmap/pdfs/abc.pdf"}
	r := newTestResolver(t, remote)

	ref, fellBack, err := r.Resolve(context.Background(), "atlas.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.False(t, fellBack)
	assert.Equal(t, models.PDFRemote, ref.Kind)
	assert.True(t, strings.HasPrefix(ref.Value, "http"))
	assert.Equal(t, 1, remote.calls)
}

func TestResolveFallsBackOnRemoteError(t *testing.T) {
	remote := &fakeUploader{err: errors.New("quota exceeded")}
	r := newTestResolver(t, remote)

	ref, fellBack, err := r.Resolve(context.Background(), "My Atlas (final).pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err, "remote failures must be absorbed, not surfaced")
	assert.True(t, fellBack)
	assert.Equal(t, models.PDFLocal, ref.Kind)
	assert.Contains(t, ref.Value, "My_Atlas_final_.pdf")
	assert.Equal(t, 1, remote.calls, "no remote retry")

	data, err := os.ReadFile(filepath.Join(r.dir, ref.Value))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.UploadFallbacksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.LocalUploadsTotal))
}

func TestResolveLocalOnlyWhenNoRemote(t *testing.T) {
	r := newTestResolver(t, nil)

	ref, fellBack, err := r.Resolve(context.Background(), "book.PDF", strings.NewReader("x"))
	require.NoError(t, err)
	assert.True(t, fellBack)
	assert.Equal(t, models.PDFLocal, ref.Kind)

	// No remote attempt happened, so nothing degraded.
	assert.Equal(t, 0.0, testutil.ToFloat64(r.metrics.UploadFallbacksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.LocalUploadsTotal))
}

func TestResolveRejectsNonPDFBeforeUpload(t *testing.T) {
	remote := &fakeUploader{url: "https://example.com/x"}
	r := newTestResolver(t, remote)

	_, _, err := r.Resolve(context.Background(), "notes.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotPDF)
	assert.Zero(t, remote.calls, "extension check must run before any upload attempt")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain.pdf", "plain.pdf"},
		{"with spaces.pdf", "with_spaces.pdf"},
		{"../../etc/passwd.pdf", "passwd.pdf"},
		{"résumé.pdf", "r_sum_.pdf"},
		{"..", "file"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}
