package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/shulgin/pipevine/internal/domain"
)

// FileStore — хранилище run log'ов в файловой системе.
//
// Один run — один JSON-документ <dir>/<run_id>.json. Каждая мутация
// выполняется как load-modify-save под мьютексом процесса: разные
// ветки одного run'а пишут по своим dot-path'ам, конкуренции
// по ключам нет, нужна лишь append-безопасность документа.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore создаёт файловое хранилище в указанной папке.
// Папка создаётся при первой записи.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(runID string) string {
	return filepath.Join(s.dir, runID+".json")
}

func (s *FileStore) load(runID string) (*RunLog, error) {
	raw, err := os.ReadFile(s.path(runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRunLogNotFound, runID)
		}
		return nil, fmt.Errorf("read run log: %w", err)
	}
	var log RunLog
	if err := json.Unmarshal(raw, &log); err != nil {
		return nil, fmt.Errorf("decode run log %s: %w", runID, err)
	}
	return &log, nil
}

func (s *FileStore) save(log *RunLog) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	raw, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run log: %w", err)
	}
	// Запись через временный файл, чтобы читатель не увидел
	// наполовину записанный документ.
	tmp := s.path(log.RunID) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write run log: %w", err)
	}
	if err := os.Rename(tmp, s.path(log.RunID)); err != nil {
		return fmt.Errorf("rename run log: %w", err)
	}
	return nil
}

// mutate выполняет load-modify-save атомарно относительно других
// горутин процесса.
func (s *FileStore) mutate(runID string, fn func(*RunLog) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.load(runID)
	if err != nil {
		return err
	}
	if err := fn(log); err != nil {
		return err
	}
	return s.save(log)
}

// PutRunLog сохраняет run log целиком.
func (s *FileStore) PutRunLog(_ context.Context, log *RunLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(log)
}

// GetRunLog возвращает run log по идентификатору запуска.
func (s *FileStore) GetRunLog(_ context.Context, runID string) (*RunLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(runID)
}

// AddStepLog добавляет или заменяет step log по его dot-path.
func (s *FileStore) AddStepLog(_ context.Context, runID string, step *StepLog) error {
	return s.mutate(runID, func(log *RunLog) error {
		return log.upsertStep(step)
	})
}

// GetStepLog возвращает step log по dot-path.
func (s *FileStore) GetStepLog(_ context.Context, runID, path string) (*StepLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.load(runID)
	if err != nil {
		return nil, err
	}
	return log.SearchStep(path)
}

// AddBranchLog добавляет или заменяет branch log по его dot-path.
func (s *FileStore) AddBranchLog(_ context.Context, runID string, branch *BranchLog) error {
	return s.mutate(runID, func(log *RunLog) error {
		return log.upsertBranch(branch)
	})
}

// GetBranchStatus возвращает статус ветки (или запуска при пустом path).
func (s *FileStore) GetBranchStatus(_ context.Context, runID, path string) (domain.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.load(runID)
	if err != nil {
		return "", err
	}
	if path == "" {
		return log.Status, nil
	}
	branch, err := log.SearchBranch(path)
	if err != nil {
		return "", err
	}
	return branch.Status, nil
}

// SetBranchStatus выставляет статус ветки (или запуска при пустом path).
func (s *FileStore) SetBranchStatus(_ context.Context, runID, path string, status domain.Status) error {
	return s.mutate(runID, func(log *RunLog) error {
		if path == "" {
			log.Status = status
			return nil
		}
		branch, err := log.SearchBranch(path)
		if err != nil {
			return err
		}
		branch.Status = status
		return nil
	})
}

// GetParameters возвращает параметры запуска.
func (s *FileStore) GetParameters(_ context.Context, runID string) (domain.Parameters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.load(runID)
	if err != nil {
		return nil, err
	}
	return log.Parameters.Clone(), nil
}

// SetParameters добавляет параметры к запуску.
func (s *FileStore) SetParameters(_ context.Context, runID string, params domain.Parameters) error {
	return s.mutate(runID, func(log *RunLog) error {
		if log.Parameters == nil {
			log.Parameters = domain.Parameters{}
		}
		for k, v := range params {
			log.Parameters[k] = v
		}
		return nil
	})
}
