package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/shulgin/pipevine/internal/domain"
)

// MinioConfig — настройки S3-совместимого каталога.
type MinioConfig struct {
	// Endpoint — адрес хранилища без схемы, например "localhost:9000".
	Endpoint string `yaml:"endpoint" env:"CATALOG_MINIO_ENDPOINT"`

	// AccessKey и SecretKey — учётные данные.
	AccessKey string `yaml:"access_key" env:"CATALOG_MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"CATALOG_MINIO_SECRET_KEY"`

	// Bucket — бакет артефактов.
	Bucket string `yaml:"bucket" env:"CATALOG_MINIO_BUCKET"`

	// UseSSL — использовать TLS.
	UseSSL bool `yaml:"use_ssl" env:"CATALOG_MINIO_USE_SSL"`
}

// Validate проверяет обязательные поля конфигурации.
func (c MinioConfig) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("minio endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("minio endpoint must not include scheme: %q", c.Endpoint)
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("minio access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("minio secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("minio bucket is required")
	}
	return nil
}

// MinioCatalog — каталог артефактов в объектном хранилище.
//
// Объекты run'а лежат под ключами <run_id>/<относительный путь>.
// Такой каталог позволяет шагам в разных контейнерах и на разных
// машинах обмениваться артефактами без общего диска.
type MinioCatalog struct {
	client *minio.Client
	bucket string
}

// NewMinioCatalog создаёт клиент объектного хранилища.
func NewMinioCatalog(cfg MinioConfig) (*MinioCatalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("minio catalog config: %w", err)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioCatalog{client: client, bucket: cfg.Bucket}, nil
}

func (c *MinioCatalog) runPrefix(runID string) string {
	return runID + "/"
}

// Get копирует артефакты по маске из каталога run'а в рабочую папку.
func (c *MinioCatalog) Get(ctx context.Context, runID, pattern, computeFolder string) ([]domain.ArtifactRef, error) {
	if _, err := os.Stat(computeFolder); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoComputeFolder, computeFolder)
	}

	prefix := c.runPrefix(runID)
	objects := c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var refs []domain.ArtifactRef
	seen := false
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("list catalog objects: %w", obj.Err)
		}
		seen = true

		rel := strings.TrimPrefix(obj.Key, prefix)
		matched, err := path.Match(pattern, rel)
		if err != nil {
			return nil, fmt.Errorf("bad catalog pattern %q: %w", pattern, err)
		}
		if !matched {
			continue
		}

		dst := filepath.Join(computeFolder, filepath.FromSlash(rel))
		if err := c.client.FGetObject(ctx, c.bucket, obj.Key, dst, minio.GetObjectOptions{}); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", obj.Key, err)
		}
		refs = append(refs, domain.ArtifactRef{
			Name:          rel,
			ComputeFolder: computeFolder,
			Stage:         "get",
			SyncedAt:      time.Now(),
		})
	}

	if !seen {
		return nil, fmt.Errorf("%w: run %s", ErrEmptyGet, runID)
	}
	return refs, nil
}

// Put копирует артефакты по маске из рабочей папки в каталог run'а.
func (c *MinioCatalog) Put(ctx context.Context, runID, pattern, computeFolder, producedBy string) ([]domain.ArtifactRef, error) {
	if _, err := os.Stat(computeFolder); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoComputeFolder, computeFolder)
	}

	matches, err := filepath.Glob(filepath.Join(computeFolder, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad catalog pattern %q: %w", pattern, err)
	}

	var refs []domain.ArtifactRef
	for _, src := range matches {
		rel, err := filepath.Rel(computeFolder, src)
		if err != nil {
			return nil, fmt.Errorf("relative path of %s: %w", src, err)
		}
		key := c.runPrefix(runID) + filepath.ToSlash(rel)
		if _, err := c.client.FPutObject(ctx, c.bucket, key, src, minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		}); err != nil {
			return nil, fmt.Errorf("store %s: %w", key, err)
		}
		refs = append(refs, domain.ArtifactRef{
			Name:          filepath.ToSlash(rel),
			ProducedBy:    producedBy,
			ComputeFolder: computeFolder,
			Stage:         "put",
			SyncedAt:      time.Now(),
		})
	}
	return refs, nil
}

// SyncBetweenRuns копирует объекты предыдущего run'а в новый
// server-side копированием, без скачивания.
func (c *MinioCatalog) SyncBetweenRuns(ctx context.Context, previousRunID, runID string) error {
	prevPrefix := c.runPrefix(previousRunID)
	objects := c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prevPrefix,
		Recursive: true,
	})

	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("list catalog objects: %w", obj.Err)
		}
		rel := strings.TrimPrefix(obj.Key, prevPrefix)
		_, err := c.client.CopyObject(ctx,
			minio.CopyDestOptions{Bucket: c.bucket, Object: c.runPrefix(runID) + rel},
			minio.CopySrcOptions{Bucket: c.bucket, Object: obj.Key},
		)
		if err != nil {
			return fmt.Errorf("copy %s: %w", obj.Key, err)
		}
	}
	return nil
}
