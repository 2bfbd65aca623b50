package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// readyMarker is the sentinel file written after both artifacts have been
// fetched and parsed. Its presence makes the availability check a cheap
// filesystem stat instead of two remote object lookups per query.
const readyMarker = ".ready"

// ObjectStore abstracts the remote artifact storage backing snapshots.
type ObjectStore interface {
	// Exists reports whether the named object is present.
	Exists(ctx context.Context, name string) (bool, error)
	// Download copies the named object to a local file path.
	Download(ctx context.Context, name, dest string) error
	// Upload copies a local file to the named object.
	Upload(ctx context.Context, src, name string) error
}

// FetchError reports a snapshot artifact that could not be retrieved. The
// vector engine treats it as a permanent degraded-mode signal for the
// process lifetime; there is no automatic retry.
type FetchError struct {
	Artifact string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch snapshot artifact %s: %v", e.Artifact, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Store resolves versioned snapshots against an ObjectStore.
type Store struct {
	objects ObjectStore
	log     zerolog.Logger
}

// NewStore creates a snapshot store.
func NewStore(objects ObjectStore, log zerolog.Logger) *Store {
	return &Store{objects: objects, log: log.With().Str("component", "index").Logger()}
}

// Exists reports whether both artifacts of the version are present remotely.
func (s *Store) Exists(ctx context.Context, version string) (bool, error) {
	for _, artifact := range []string{ArtifactVectors, ArtifactDocuments} {
		ok, err := s.objects.Exists(ctx, objectName(version, artifact))
		if err != nil {
			return false, fmt.Errorf("check %s: %w", artifact, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// FetchToLocal downloads both artifacts of the version into dir. A missing
// or unreadable artifact fails the whole fetch with a FetchError naming it.
func (s *Store) FetchToLocal(ctx context.Context, version, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	for _, artifact := range []string{ArtifactVectors, ArtifactDocuments} {
		name := objectName(version, artifact)
		ok, err := s.objects.Exists(ctx, name)
		if err != nil {
			return &FetchError{Artifact: artifact, Err: err}
		}
		if !ok {
			return &FetchError{Artifact: artifact, Err: fmt.Errorf("object %s not found", name)}
		}
		if err := s.objects.Download(ctx, name, filepath.Join(dir, artifact)); err != nil {
			return &FetchError{Artifact: artifact, Err: err}
		}
		s.log.Info().Str("artifact", artifact).Str("version", version).Msg("snapshot artifact fetched")
	}
	return nil
}

// Upload publishes the artifacts in dir under the version prefix.
func (s *Store) Upload(ctx context.Context, version, dir string) error {
	for _, artifact := range []string{ArtifactVectors, ArtifactDocuments} {
		src := filepath.Join(dir, artifact)
		if err := s.objects.Upload(ctx, src, objectName(version, artifact)); err != nil {
			return fmt.Errorf("upload %s: %w", artifact, err)
		}
		s.log.Info().Str("artifact", artifact).Str("version", version).Msg("snapshot artifact uploaded")
	}
	return nil
}

// MarkReady writes the sentinel file recording the loaded version.
func MarkReady(dir, version string) error {
	return os.WriteFile(filepath.Join(dir, readyMarker), []byte(version+"\n"), 0o644)
}

// ReadyVersion reads the sentinel file, reporting false when absent.
func ReadyVersion(dir string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(dir, readyMarker))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// ClearReady removes the sentinel, used when a cached snapshot is replaced.
func ClearReady(dir string) error {
	err := os.Remove(filepath.Join(dir, readyMarker))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func objectName(version, artifact string) string {
	return version + "/" + artifact
}
