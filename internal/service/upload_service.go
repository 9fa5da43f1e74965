package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"shopfront/internal/repository"
)

// UploadPrefix is the relative path prefix of returned upload paths.
const UploadPrefix = "uploads"

var ErrNoFile = errors.New("no file uploaded")

// UploadService stores uploaded files in a single directory.
type UploadService struct {
	dir string
	now func() time.Time
	deps
}

func NewUploadService(dir string, opts ...Option) *UploadService {
	return &UploadService{dir: dir, now: time.Now, deps: newDeps(opts)}
}

// Dir is the directory files are written to.
func (s *UploadService) Dir() string { return s.dir }

// Save writes r as "<unix-millis>-<base name>" and returns its relative path
// ("uploads/<name>"). Two uploads of the same name within one millisecond
// overwrite each other.
func (s *UploadService) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	ctx, span := s.tracer.Start(ctx, "UploadService.Save", trace.WithAttributes(attribute.String("upload.original_name", originalName)))
	defer span.End()

	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(originalName, `\`, "/")))
	if r == nil || base == "/" || base == "." {
		return "", fail(span, ErrNoFile)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fail(span, fmt.Errorf("create upload dir: %w", err))
	}
	name := strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + base

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fail(span, fmt.Errorf("create upload file: %w", err))
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fail(span, fmt.Errorf("write upload file: %w", err))
	}
	s.metrics.Uploads.Add(ctx, 1)
	s.log.Info("file uploaded", zap.String("file", name), zap.Int64("bytes", n))
	return path.Join(UploadPrefix, name), nil
}

// Locate returns the on-disk path of an uploaded file. Names that are not a
// plain file name, or that do not exist, are reported as not found.
func (s *UploadService) Locate(ctx context.Context, filename string) (string, error) {
	_, span := s.tracer.Start(ctx, "UploadService.Locate", trace.WithAttributes(attribute.String("upload.file", filename)))
	defer span.End()

	if filename == "" || filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return "", fail(span, repository.ErrNotFound)
	}
	p := filepath.Join(s.dir, filename)
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", fail(span, repository.ErrNotFound)
	}
	if err != nil {
		return "", fail(span, err)
	}
	return p, nil
}
