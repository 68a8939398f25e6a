package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// DefaultExtensions are the transcript file types listed by a FolderSource
var DefaultExtensions = []string{".txt", ".md", ".vtt", ".srt"}

// FolderSource serves transcripts from a directory tree. Document IDs are
// slash-separated paths relative to the root; the file's modification time
// stands in for its creation time.
type FolderSource struct {
	root       *os.Root
	rootPath   string
	extensions []string
	maxBytes   int64
	logger     ectologger.Logger
}

// NewFolderSource opens dir as a document root
func NewFolderSource(dir string, extensions []string, maxBytes int64, logger ectologger.Logger) (*FolderSource, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve transcripts dir: %w", err)
	}

	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("open transcripts dir: %w", err)
	}

	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	return &FolderSource{
		root:       root,
		rootPath:   abs,
		extensions: ectolinq.Map(extensions, strings.ToLower),
		maxBytes:   maxBytes,
		logger:     logger,
	}, nil
}

// Close releases the root directory handle
func (s *FolderSource) Close() error {
	return s.root.Close()
}

// ListCandidates lists transcript files directly inside folder modified within window
func (s *FolderSource) ListCandidates(ctx context.Context, folder string, window models.TimeRange) ([]models.DocumentCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "documents.FolderSource.ListCandidates")
	defer span.End()

	dir := path.Clean("/" + filepath.ToSlash(folder))[1:]
	if dir == "" {
		dir = "."
	}

	entries, err := fs.ReadDir(s.root.FS(), dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	candidates := []models.DocumentCandidate{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !ectolinq.Contains(s.extensions, strings.ToLower(path.Ext(entry.Name()))) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).WithField("file", entry.Name()).Warn("Skipping unreadable transcript file")
			continue
		}

		modified := info.ModTime().UTC()
		if !window.Contains(modified) {
			continue
		}

		id := path.Join(dir, entry.Name())
		candidates = append(candidates, models.DocumentCandidate{
			ID:        id,
			Name:      strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())),
			CreatedAt: modified,
			URL:       s.fileURL(id),
		})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	return candidates, nil
}

// FetchText reads a transcript file
func (s *FolderSource) FetchText(ctx context.Context, documentID string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "documents.FolderSource.FetchText")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := s.root.Open(filepath.FromSlash(documentID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("open %s: %w", documentID, err)
	}
	defer f.Close()

	var r io.Reader = f
	if s.maxBytes > 0 {
		r = io.LimitReader(f, s.maxBytes)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", documentID, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", ErrNotFound
	}

	return string(data), nil
}

// DocumentIDFromURL maps file:// URLs under the root to document IDs
func (s *FolderSource) DocumentIDFromURL(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme != "file" {
		return "", false
	}

	rel, err := filepath.Rel(s.rootPath, filepath.FromSlash(u.Path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (s *FolderSource) fileURL(id string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(s.rootPath, filepath.FromSlash(id)))}).String()
}
