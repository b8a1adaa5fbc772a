package storefs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-rights/report"
)

// SignedURLInput describes a signed URL request.
type SignedURLInput struct {
	BaseURL   string
	Key       string
	ExpiresAt time.Time
}

// SignedURLSigner signs artifact URLs.
type SignedURLSigner interface {
	SignURL(input SignedURLInput) (string, error)
}

// Store provides filesystem-backed report artifact storage. Artifacts
// are written atomically with a JSON metadata sidecar.
type Store struct {
	Root    string
	BaseURL string
	Signer  SignedURLSigner
	Now     func() time.Time
}

// NewStore creates a filesystem-backed artifact store rooted at root.
func NewStore(root string) *Store {
	return &Store{Root: root, Now: time.Now}
}

// Put stores an artifact on disk.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, meta report.ArtifactMeta) (report.ArtifactRef, error) {
	_ = ctx
	if s == nil {
		return report.ArtifactRef{}, report.NewError(report.KindInternal, "store is nil", nil)
	}
	if s.Root == "" {
		return report.ArtifactRef{}, report.NewError(report.KindValidation, "store root is required", nil)
	}
	if key == "" {
		return report.ArtifactRef{}, report.NewError(report.KindValidation, "artifact key is required", nil)
	}

	pathOnDisk, err := s.resolvePath(key)
	if err != nil {
		return report.ArtifactRef{}, err
	}

	dir := filepath.Dir(pathOnDisk)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return report.ArtifactRef{}, err
	}

	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		return report.ArtifactRef{}, err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return report.ArtifactRef{}, err
	}
	if err := tmp.Sync(); err != nil {
		return report.ArtifactRef{}, err
	}
	if err := tmp.Close(); err != nil {
		return report.ArtifactRef{}, err
	}

	if err := os.Rename(tmp.Name(), pathOnDisk); err != nil {
		return report.ArtifactRef{}, err
	}

	meta.Size = size
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.now()
	}
	if meta.ContentType == "" {
		meta.ContentType = mime.TypeByExtension(filepath.Ext(pathOnDisk))
	}

	if err := s.writeMeta(pathOnDisk, meta); err != nil {
		return report.ArtifactRef{}, err
	}

	return report.ArtifactRef{Key: key, Meta: meta}, nil
}

// Open reads an artifact from disk.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, report.ArtifactMeta, error) {
	_ = ctx
	if s == nil {
		return nil, report.ArtifactMeta{}, report.NewError(report.KindInternal, "store is nil", nil)
	}
	if s.Root == "" {
		return nil, report.ArtifactMeta{}, report.NewError(report.KindValidation, "store root is required", nil)
	}
	if key == "" {
		return nil, report.ArtifactMeta{}, report.NewError(report.KindValidation, "artifact key is required", nil)
	}

	pathOnDisk, err := s.resolvePath(key)
	if err != nil {
		return nil, report.ArtifactMeta{}, err
	}

	file, err := os.Open(pathOnDisk)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, report.ArtifactMeta{}, report.NewError(report.KindNotFound, fmt.Sprintf("artifact %q not found", key), err)
		}
		return nil, report.ArtifactMeta{}, err
	}

	meta := s.readMeta(pathOnDisk)
	if meta.ContentType == "" {
		meta.ContentType = mime.TypeByExtension(filepath.Ext(pathOnDisk))
	}
	if meta.Size == 0 {
		if info, err := file.Stat(); err == nil {
			meta.Size = info.Size()
			if meta.CreatedAt.IsZero() {
				meta.CreatedAt = info.ModTime()
			}
		}
	}

	return file, meta, nil
}

// Delete removes an artifact and its metadata sidecar.
func (s *Store) Delete(ctx context.Context, key string) error {
	_ = ctx
	if s == nil {
		return report.NewError(report.KindInternal, "store is nil", nil)
	}
	if s.Root == "" {
		return report.NewError(report.KindValidation, "store root is required", nil)
	}
	if key == "" {
		return report.NewError(report.KindValidation, "artifact key is required", nil)
	}

	pathOnDisk, err := s.resolvePath(key)
	if err != nil {
		return err
	}
	_ = os.Remove(pathOnDisk)
	_ = os.Remove(metaPath(pathOnDisk))
	return nil
}

// SignedURL generates a signed URL when configured.
func (s *Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	_ = ctx
	if s == nil {
		return "", report.NewError(report.KindInternal, "store is nil", nil)
	}
	if s.Signer == nil || s.BaseURL == "" {
		return "", report.NewError(report.KindNotImpl, "signed URLs not configured", nil)
	}
	if ttl <= 0 {
		return "", report.NewError(report.KindValidation, "signed URL TTL is required", nil)
	}
	if key == "" {
		return "", report.NewError(report.KindValidation, "artifact key is required", nil)
	}
	expires := s.now().Add(ttl)
	return s.Signer.SignURL(SignedURLInput{
		BaseURL:   strings.TrimRight(s.BaseURL, "/"),
		Key:       key,
		ExpiresAt: expires,
	})
}

// SweepExpired removes artifacts whose metadata expiry has passed and
// returns the keys removed. Artifacts without an expiry are kept.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) ([]string, error) {
	if s == nil || s.Root == "" {
		return nil, report.NewError(report.KindValidation, "store root is required", nil)
	}
	if now.IsZero() {
		now = s.now()
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return nil, err
	}

	var removed []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasSuffix(p, ".meta.json") {
			return nil
		}
		meta := s.readMeta(p)
		if meta.ExpiresAt.IsZero() || meta.ExpiresAt.After(now) {
			return nil
		}
		_ = os.Remove(p)
		_ = os.Remove(metaPath(p))
		if rel, relErr := filepath.Rel(root, p); relErr == nil {
			removed = append(removed, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return removed, err
	}
	return removed, nil
}

func (s *Store) resolvePath(key string) (string, error) {
	clean := path.Clean("/" + key)
	rel := strings.TrimPrefix(clean, "/")
	if rel == "" || rel == "." {
		return "", report.NewError(report.KindValidation, "invalid artifact key", nil)
	}

	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	target := filepath.Join(root, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) && target != root {
		return "", report.NewError(report.KindValidation, "artifact key escapes root", nil)
	}
	return target, nil
}

func (s *Store) writeMeta(pathOnDisk string, meta report.ArtifactMeta) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	dir := filepath.Dir(pathOnDisk)
	tmp, err := os.CreateTemp(dir, ".meta-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(payload); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), metaPath(pathOnDisk))
}

func (s *Store) readMeta(pathOnDisk string) report.ArtifactMeta {
	data, err := os.ReadFile(metaPath(pathOnDisk))
	if err != nil {
		return report.ArtifactMeta{}
	}
	var meta report.ArtifactMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return report.ArtifactMeta{}
	}
	return meta
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func metaPath(pathOnDisk string) string {
	return pathOnDisk + ".meta.json"
}
