package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/shulgin/pipevine/internal/domain"
)

// FileCatalog — каталог артефактов в локальной файловой системе.
//
// Артефакты run'а лежат под <root>/<run_id>/ с сохранением
// относительных путей рабочей папки.
type FileCatalog struct {
	root string
}

// NewFileCatalog создаёт файловый каталог с указанным корнем.
func NewFileCatalog(root string) *FileCatalog {
	return &FileCatalog{root: root}
}

func (c *FileCatalog) runDir(runID string) string {
	return filepath.Join(c.root, runID)
}

// Get копирует артефакты по маске из каталога run'а в рабочую папку.
func (c *FileCatalog) Get(_ context.Context, runID, pattern, computeFolder string) ([]domain.ArtifactRef, error) {
	if _, err := os.Stat(computeFolder); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoComputeFolder, computeFolder)
	}
	runDir := c.runDir(runID)
	if _, err := os.Stat(runDir); err != nil {
		return nil, fmt.Errorf("%w: run %s", ErrEmptyGet, runID)
	}

	matches, err := filepath.Glob(filepath.Join(runDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad catalog pattern %q: %w", pattern, err)
	}

	var refs []domain.ArtifactRef
	for _, src := range matches {
		rel, err := filepath.Rel(runDir, src)
		if err != nil {
			return nil, fmt.Errorf("relative path of %s: %w", src, err)
		}
		dst := filepath.Join(computeFolder, rel)
		if err := copyFile(src, dst); err != nil {
			return nil, err
		}
		refs = append(refs, domain.ArtifactRef{
			Name:          rel,
			ComputeFolder: computeFolder,
			Stage:         "get",
			SyncedAt:      time.Now(),
		})
	}
	return refs, nil
}

// Put копирует артефакты по маске из рабочей папки в каталог run'а.
func (c *FileCatalog) Put(_ context.Context, runID, pattern, computeFolder, producedBy string) ([]domain.ArtifactRef, error) {
	if _, err := os.Stat(computeFolder); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoComputeFolder, computeFolder)
	}

	matches, err := filepath.Glob(filepath.Join(computeFolder, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad catalog pattern %q: %w", pattern, err)
	}

	runDir := c.runDir(runID)
	var refs []domain.ArtifactRef
	for _, src := range matches {
		rel, err := filepath.Rel(computeFolder, src)
		if err != nil {
			return nil, fmt.Errorf("relative path of %s: %w", src, err)
		}
		dst := filepath.Join(runDir, rel)
		if err := copyFile(src, dst); err != nil {
			return nil, err
		}
		refs = append(refs, domain.ArtifactRef{
			Name:          rel,
			ProducedBy:    producedBy,
			ComputeFolder: computeFolder,
			Stage:         "put",
			SyncedAt:      time.Now(),
		})
	}
	return refs, nil
}

// SyncBetweenRuns копирует каталог предыдущего run'а в новый.
func (c *FileCatalog) SyncBetweenRuns(_ context.Context, previousRunID, runID string) error {
	prevDir := c.runDir(previousRunID)
	if _, err := os.Stat(prevDir); err != nil {
		// Предыдущий запуск мог ничего не положить в каталог.
		return nil
	}

	newDir := c.runDir(runID)
	return filepath.Walk(prevDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(prevDir, path)
		if err != nil {
			return err
		}
		return copyFile(path, filepath.Join(newDir, rel))
	})
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create folder for %s: %w", dst, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return out.Sync()
}
