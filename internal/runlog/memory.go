package runlog

import (
	"context"
	"fmt"
	"sync"

	"github.com/shulgin/pipevine/internal/domain"
)

// MemoryStore — хранилище run log'ов в памяти процесса.
//
// Используется в тестах и как значение по умолчанию для локальных
// запусков без сохранения истории. Все операции потокобезопасны,
// Get-методы возвращают глубокие копии.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*RunLog
}

// NewMemoryStore создаёт пустое хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*RunLog)}
}

// PutRunLog сохраняет run log целиком.
func (s *MemoryStore) PutRunLog(_ context.Context, log *RunLog) error {
	copied, err := log.clone()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[log.RunID] = copied
	return nil
}

// GetRunLog возвращает копию run log'а.
func (s *MemoryStore) GetRunLog(_ context.Context, runID string) (*RunLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunLogNotFound, runID)
	}
	return log.clone()
}

// AddStepLog добавляет или заменяет step log по его dot-path.
func (s *MemoryStore) AddStepLog(_ context.Context, runID string, step *StepLog) error {
	copied, err := cloneStep(step)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunLogNotFound, runID)
	}
	return log.upsertStep(copied)
}

// GetStepLog возвращает копию step log'а по dot-path.
func (s *MemoryStore) GetStepLog(_ context.Context, runID, path string) (*StepLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunLogNotFound, runID)
	}
	step, err := log.SearchStep(path)
	if err != nil {
		return nil, err
	}
	return cloneStep(step)
}

// AddBranchLog добавляет или заменяет branch log по его dot-path.
func (s *MemoryStore) AddBranchLog(_ context.Context, runID string, branch *BranchLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunLogNotFound, runID)
	}
	// Копия без вложенных шагов не нужна: ветка маленькая,
	// но указатель отдавать наружу нельзя.
	copied := &BranchLog{InternalName: branch.InternalName, Status: branch.Status}
	for _, st := range branch.Steps {
		stepCopy, err := cloneStep(st)
		if err != nil {
			return err
		}
		copied.Steps = append(copied.Steps, stepCopy)
	}
	return log.upsertBranch(copied)
}

// GetBranchStatus возвращает статус ветки (или запуска при пустом path).
func (s *MemoryStore) GetBranchStatus(_ context.Context, runID, path string) (domain.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.runs[runID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRunLogNotFound, runID)
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
func (s *MemoryStore) SetBranchStatus(_ context.Context, runID, path string, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunLogNotFound, runID)
	}
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
}

// GetParameters возвращает копию параметров запуска.
func (s *MemoryStore) GetParameters(_ context.Context, runID string) (domain.Parameters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunLogNotFound, runID)
	}
	return log.Parameters.Clone(), nil
}

// SetParameters добавляет параметры к запуску.
func (s *MemoryStore) SetParameters(_ context.Context, runID string, params domain.Parameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunLogNotFound, runID)
	}
	if log.Parameters == nil {
		log.Parameters = domain.Parameters{}
	}
	for k, v := range params {
		log.Parameters[k] = v
	}
	return nil
}
