package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/bidscribe/internal/core/domain"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driven"
	"github.com/custodia-labs/bidscribe/internal/core/ports/driving"
	"github.com/custodia-labs/bidscribe/internal/logger"
)

// Ensure ImportService implements the interface.
var _ driving.ImportService = (*ImportService)(nil)

// MIMEDetector maps a file path to a MIME type, "" when unknown.
type MIMEDetector func(path string) string

// ImportService reads files, splits them with the normaliser registry,
// post-processes the records and hands them to the library.
type ImportService struct {
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline
	library  driving.LibraryService
	detect   MIMEDetector
}

// NewImportService creates an import service.
func NewImportService(
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	library driving.LibraryService,
	detect MIMEDetector,
) *ImportService {
	return &ImportService{
		registry: registry,
		pipeline: pipeline,
		library:  library,
		detect:   detect,
	}
}

// ImportFiles imports every supported file under paths into group.
func (s *ImportService) ImportFiles(ctx context.Context, group string, paths []string) (*driving.ImportResult, error) {
	files, err := s.expand(paths)
	if err != nil {
		return nil, err
	}

	supported := make(map[string]bool)
	for _, t := range s.registry.SupportedMIMETypes() {
		supported[t] = true
	}

	result := &driving.ImportResult{}
	var errs []error
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		mimeType := s.detect(path)
		if !supported[mimeType] {
			logger.Debug("Skipping %s: unsupported type %q", path, mimeType)
			result.Skipped = append(result.Skipped, path)
			continue
		}

		n, ids, err := s.importFile(ctx, group, path, mimeType)
		result.Records += n
		result.DocIDs = append(result.DocIDs, ids...)
		if len(ids) > 0 {
			result.Files++
		}
		if err != nil {
			logger.Warn("Import of %s failed: %v", path, err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if n == 0 {
			result.Skipped = append(result.Skipped, path)
		}
	}

	logger.Info("Imported %d files (%d records), skipped %d", result.Files, result.Records, len(result.Skipped))
	return result, errors.Join(errs...)
}

func (s *ImportService) importFile(ctx context.Context, group, path, mimeType string) (int, []string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, fmt.Errorf("read: %w", err)
	}

	docs, err := s.registry.Normalise(ctx, &domain.RawDocument{
		URI:      path,
		MIMEType: mimeType,
		Content:  content,
	})
	if err != nil {
		return 0, nil, err
	}

	docs, err = s.pipeline.Process(ctx, docs)
	if err != nil {
		return 0, nil, err
	}
	if len(docs) == 0 {
		return 0, nil, nil
	}

	ids, err := s.library.Ingest(ctx, group, docs)
	return len(docs), ids, err
}

// expand resolves paths to regular files, walking directories and
// skipping hidden entries inside them.
func (s *ImportService) expand(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return files, nil
}
