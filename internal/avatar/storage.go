package avatar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sultanmr/aws-grocery/internal/domain"
	"github.com/sultanmr/aws-grocery/pkg/breaker"
	apperrors "github.com/sultanmr/aws-grocery/pkg/errors"
	"github.com/sultanmr/aws-grocery/pkg/logger"
)

// DefaultMaxBytes is the upload size limit when none is configured.
const DefaultMaxBytes = 5 << 20

// Fallback chain step labels.
const (
	StepRequested      = "requested"
	StepBackendDefault = "backend_default"
	StepLocalDefault   = "local_default"
)

// Config configures a Storage.
type Config struct {
	// DefaultName is the sentinel avatar filename.
	DefaultName string
	// LocalDefaultPath is the filesystem path of the last-resort image.
	LocalDefaultPath string
	// MaxBytes caps upload size; zero means DefaultMaxBytes.
	MaxBytes int64
}

// Upload is one image submitted by a user.
type Upload struct {
	UserID      int64
	Filename    string
	ContentType string
	Data        []byte
}

// CommitFunc persists newRef as the user's avatar and returns the reference
// it replaced. It runs after the new object is stored.
type CommitFunc func(ctx context.Context, newRef string) (previousRef string, err error)

// Storage implements the avatar upload, fetch and delete protocols over a
// single configured Backend.
type Storage struct {
	backend Backend
	namer   *Namer
	cfg     Config
	metrics *Metrics
	logger  *slog.Logger
}

// NewStorage builds a Storage. metrics may be nil.
func NewStorage(backend Backend, namer *Namer, cfg Config, metrics *Metrics, logger *slog.Logger) *Storage {
	if cfg.DefaultName == "" {
		cfg.DefaultName = domain.DefaultAvatar
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if namer == nil {
		namer = NewNamer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{backend: backend, namer: namer, cfg: cfg, metrics: metrics, logger: logger}
}

// BackendName returns the configured backend's name.
func (s *Storage) BackendName() string { return s.backend.Name() }

// MaxBytes returns the effective upload limit.
func (s *Storage) MaxBytes() int64 { return s.cfg.MaxBytes }

// IsDefault reports whether ref is the sentinel avatar in any of its forms.
func (s *Storage) IsDefault(ref string) bool {
	return ref == "" || ref == s.cfg.DefaultName || ref == s.backend.Ref(s.cfg.DefaultName)
}

// Validate checks an upload before any storage I/O.
func (s *Storage) Validate(filename string, size int64) error {
	if !IsAllowed(filename) {
		return apperrors.UnsupportedFileType(filename)
	}
	if size <= 0 {
		return apperrors.InvalidInput("avatar file is empty")
	}
	if size > s.cfg.MaxBytes {
		return apperrors.InvalidInput(fmt.Sprintf("avatar exceeds the %d byte limit", s.cfg.MaxBytes))
	}
	return nil
}

// Put validates and stores up under a freshly generated name and returns its
// reference. No user state is touched.
func (s *Storage) Put(ctx context.Context, up Upload) (string, error) {
	if err := s.Validate(up.Filename, int64(len(up.Data))); err != nil {
		return "", err
	}

	name := s.namer.Name(up.UserID, up.Filename)
	ref := s.backend.Ref(name)
	if err := s.backend.Put(ctx, ref, up.Data, up.ContentType); err != nil {
		s.metrics.upload(s.backend.Name(), "upload_failed")
		return "", apperrors.UploadFailed(err)
	}
	return ref, nil
}

// Replace stores up, commits the new reference and only then deletes the
// previous object unless it is the sentinel. A failed write leaves the user
// untouched. A failed commit leaves the new object orphaned and returns a
// persistence error. A failed delete of the old object is logged only.
func (s *Storage) Replace(ctx context.Context, up Upload, commit CommitFunc) (string, error) {
	log := logger.WithContext(ctx, s.logger)

	ref, err := s.Put(ctx, up)
	if err != nil {
		return "", err
	}

	previous, err := commit(ctx, ref)
	if err != nil {
		s.metrics.upload(s.backend.Name(), "commit_failed")
		log.ErrorContext(ctx, "avatar commit failed, new object left orphaned",
			slog.Int64("user_id", up.UserID),
			slog.String("ref", ref),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", err
		}
		return "", apperrors.Persistence("save avatar", err)
	}
	s.metrics.upload(s.backend.Name(), "ok")

	if previous != ref && !s.IsDefault(previous) {
		if err := s.backend.Delete(ctx, previous); err != nil && !errors.Is(err, ErrObjectNotFound) {
			log.WarnContext(ctx, "failed to delete previous avatar",
				slog.Int64("user_id", up.UserID),
				slog.String("ref", previous),
				slog.String("error", err.Error()),
			)
		}
	}
	return ref, nil
}

// Fetch resolves ref through the fallback chain: the requested object, the
// backend's default object, then the local default file. Steps run strictly
// in order. When all three fail the result is a NOT_FOUND error.
func (s *Storage) Fetch(ctx context.Context, ref string) (*Object, error) {
	log := logger.WithContext(ctx, s.logger)

	defaultRef := s.backend.Ref(s.cfg.DefaultName)

	if ref != "" {
		obj, err := s.backend.Get(ctx, ref)
		if err == nil {
			s.metrics.step(StepRequested, "hit")
			return obj, nil
		}
		s.metrics.step(StepRequested, result(err))
		log.DebugContext(ctx, "avatar fetch fell back",
			slog.String("step", StepRequested),
			slog.String("ref", ref),
			slog.String("error", err.Error()),
		)
	}

	if ref != defaultRef {
		obj, err := s.backend.Get(ctx, defaultRef)
		if err == nil {
			s.metrics.step(StepBackendDefault, "hit")
			return obj, nil
		}
		s.metrics.step(StepBackendDefault, result(err))
		log.WarnContext(ctx, "default avatar unavailable on backend",
			slog.String("backend", s.backend.Name()),
			slog.String("error", err.Error()),
		)
	}

	obj, err := readLocal(s.cfg.LocalDefaultPath)
	if err == nil {
		s.metrics.step(StepLocalDefault, "hit")
		return obj, nil
	}
	s.metrics.step(StepLocalDefault, result(err))
	log.ErrorContext(ctx, "local default avatar unavailable",
		slog.String("path", s.cfg.LocalDefaultPath),
		slog.String("error", err.Error()),
	)
	return nil, apperrors.NotFoundMsg("avatar unavailable")
}

// FetchByName serves a public avatar filename. Names that do not survive
// sanitizing unchanged skip the requested step and go straight to the
// defaults.
func (s *Storage) FetchByName(ctx context.Context, filename string) (*Object, error) {
	ref := ""
	if safe := SecureFilename(filename); safe != "" && safe == filename {
		ref = s.backend.Ref(safe)
	}
	return s.Fetch(ctx, ref)
}

// Delete removes the object at ref. The sentinel and already-missing objects
// are not errors.
func (s *Storage) Delete(ctx context.Context, ref string) error {
	if s.IsDefault(ref) {
		return nil
	}
	if err := s.backend.Delete(ctx, ref); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return apperrors.StorageFailure("delete", err)
	}
	return nil
}

func result(err error) string {
	switch {
	case errors.Is(err, ErrObjectNotFound) || errors.Is(err, os.ErrNotExist):
		return "miss"
	case breaker.IsOpen(err):
		return "short_circuit"
	default:
		return "error"
	}
}

func readLocal(path string) (*Object, error) {
	if path == "" {
		return nil, fmt.Errorf("no local default configured: %w", os.ErrNotExist)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Object{Data: data, ContentType: ContentType(path, data)}, nil
}

// ContentType guesses a MIME type from the extension, then from the bytes.
func ContentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
