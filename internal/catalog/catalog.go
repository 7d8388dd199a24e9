package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/shulgin/pipevine/internal/domain"
)

// Ошибки каталога. Все они — ошибки конфигурации запуска
// и не подлежат повторным попыткам.
var (
	// ErrNoComputeFolder — рабочая папка данных узла не существует.
	ErrNoComputeFolder = errors.New("compute data folder does not exist")

	// ErrEmptyGet — get вызван первым действием запуска:
	// в каталог этого run'а ещё ничего не было помещено.
	ErrEmptyGet = errors.New("catalog get before any put in this run")

	// ErrUnknownCatalogKind — неизвестный тип каталога в конфигурации.
	ErrUnknownCatalogKind = errors.New("unknown catalog kind")
)

// Catalog — интерфейс каталога артефактов.
//
// Инвариант: get никогда не видит артефакты узла, который ещё
// не завершился успешно в этом run'е (или, при re-run, в исходном
// run'е, чей каталог был синхронизирован).
type Catalog interface {
	// Get копирует артефакты по маске из каталога run'а в рабочую папку.
	Get(ctx context.Context, runID, pattern, computeFolder string) ([]domain.ArtifactRef, error)

	// Put копирует артефакты по маске из рабочей папки в каталог run'а,
	// помечая их dot-path'ом узла-производителя.
	Put(ctx context.Context, runID, pattern, computeFolder, producedBy string) ([]domain.ArtifactRef, error)

	// SyncBetweenRuns копирует каталог предыдущего run'а в новый.
	// Используется re-run'ом: артефакты пропущенных узлов остаются
	// доступными узлам, выполняемым заново.
	SyncBetweenRuns(ctx context.Context, previousRunID, runID string) error
}

// Виды каталогов.
const (
	KindFile  = "file"
	KindMinio = "minio"
)

// Config — конфигурация каталога.
type Config struct {
	// Kind — file или minio.
	Kind string `yaml:"kind" env:"CATALOG_KIND"`

	// Dir — корень файлового каталога.
	Dir string `yaml:"dir" env:"CATALOG_DIR"`

	// ComputeDataFolder — рабочая папка данных по умолчанию.
	ComputeDataFolder string `yaml:"compute_data_folder" env:"CATALOG_COMPUTE_DATA_FOLDER"`

	// Minio — настройки объектного хранилища.
	Minio MinioConfig `yaml:"minio"`
}

// New создаёт каталог по конфигурации.
// Пустой Kind трактуется как file с корнем по умолчанию.
func New(cfg Config) (Catalog, error) {
	switch cfg.Kind {
	case KindFile, "":
		dir := cfg.Dir
		if dir == "" {
			dir = ".pipevine/catalog"
		}
		return NewFileCatalog(dir), nil
	case KindMinio:
		return NewMinioCatalog(cfg.Minio)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCatalogKind, cfg.Kind)
	}
}

// DefaultComputeDataFolder — рабочая папка данных, если она
// не переопределена ни конфигурацией, ни узлом.
const DefaultComputeDataFolder = "data"
