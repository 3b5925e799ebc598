// Package fs stores artifacts as JSON documents under a base URL of any
// storage supported by afs (file://, mem://, gs://, s3:// …).
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/recompiler/service/dao"
	"github.com/viant/recompiler/service/dao/artifact"
)

// Service implements an afs-backed artifact storage
type Service struct {
	baseURL string
	fs      afs.Service
	mu      sync.RWMutex
}

// Ensure Service implements dao.Service
var _ dao.Service[string, artifact.Artifact] = (*Service)(nil)

// Save persists an artifact
func (s *Service) Save(ctx context.Context, anArtifact *artifact.Artifact) error {
	if anArtifact == nil {
		return dao.ErrNilEntity
	}
	if anArtifact.Function == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(anArtifact)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	URL := s.artifactURL(anArtifact.Function)
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save artifact to %s: %w", URL, err)
	}
	return nil
}

// Load retrieves an artifact by function name
func (s *Service) Load(ctx context.Context, function string) (*artifact.Artifact, error) {
	if function == "" {
		return nil, dao.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	URL := s.artifactURL(function)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check if artifact exists: %w", err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}

	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", URL, err)
	}

	var ret artifact.Artifact
	if err := json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact %s: %w", URL, err)
	}
	return &ret, nil
}

// Delete removes an artifact
func (s *Service) Delete(ctx context.Context, function string) error {
	if function == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	URL := s.artifactURL(function)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to check if artifact exists: %w", err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	if err := s.fs.Delete(ctx, URL); err != nil {
		return fmt.Errorf("failed to delete artifact %s: %w", URL, err)
	}
	return nil
}

// List returns all stored artifacts. Parameters are not supported.
func (s *Service) List(ctx context.Context, _ ...*dao.Parameter) ([]*artifact.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	var ret []*artifact.Artifact
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact %s: %w", object.URL(), err)
		}
		var anArtifact artifact.Artifact
		if err := json.Unmarshal(data, &anArtifact); err != nil {
			return nil, fmt.Errorf("failed to unmarshal artifact %s: %w", object.URL(), err)
		}
		ret = append(ret, &anArtifact)
	}
	return ret, nil
}

func (s *Service) artifactURL(function string) string {
	return url.Join(s.baseURL, fmt.Sprintf("%s.json", path.Base(function)))
}

// New creates an artifact storage rooted at baseURL
func New(fs afs.Service, baseURL string) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if fs == nil {
		fs = afs.New()
	}

	baseURL = url.Normalize(baseURL, file.Scheme)
	ctx := context.Background()
	exists, _ := fs.Exists(ctx, baseURL)
	if !exists {
		if err := fs.Create(ctx, baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create artifact location %s: %w", baseURL, err)
		}
	}

	return &Service{
		baseURL: baseURL,
		fs:      fs,
	}, nil
}
