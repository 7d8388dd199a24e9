package runlog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shulgin/pipevine/internal/domain"
)

// Attempt — запись одной попытки выполнения узла.
//
// Попытки неизменяемы после завершения: retry и re-run добавляют
// новую запись, никогда не мутируя старую.
type Attempt struct {
	// Number — порядковый номер попытки, начиная с единицы.
	Number int `json:"number"`

	// Status — результат попытки.
	Status domain.Status `json:"status"`

	// StartedAt — время начала попытки.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения попытки.
	FinishedAt time.Time `json:"finished_at"`

	// Message — диагностика ошибки, пустая при успехе.
	Message string `json:"message,omitempty"`

	// ExitCode — код завершения процесса узла.
	ExitCode int `json:"exit_code,omitempty"`
}

// Duration возвращает продолжительность попытки.
func (a Attempt) Duration() time.Duration {
	return a.FinishedAt.Sub(a.StartedAt)
}

// StepLog — журнал выполнения одного узла.
type StepLog struct {
	// Name — имя узла относительно своего графа.
	Name string `json:"name"`

	// InternalName — dot-path узла с подставленными значениями итераций.
	InternalName string `json:"internal_name"`

	// Kind — тип узла.
	Kind domain.NodeKind `json:"kind"`

	// Status — текущий статус узла.
	Status domain.Status `json:"status"`

	// Mock — true, если узел не выполнялся (re-run переиспользовал
	// успешный результат предыдущего запуска).
	Mock bool `json:"mock,omitempty"`

	// Message — служебное сообщение (например причина пропуска).
	Message string `json:"message,omitempty"`

	// StartedAt — время диспетчеризации узла.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время перехода в терминальный статус.
	FinishedAt time.Time `json:"finished_at,omitempty"`

	// Attempts — упорядоченные записи попыток.
	Attempts []Attempt `json:"attempts,omitempty"`

	// UserDefinedMetrics — метрики, опубликованные узлом,
	// ключ формируется как key или key_{step}.
	UserDefinedMetrics map[string]any `json:"user_defined_metrics,omitempty"`

	// CapturedEnv — метрики из переменных окружения с отслеживаемым
	// префиксом. В tracker-плагин не пересылаются.
	CapturedEnv map[string]string `json:"captured_env,omitempty"`

	// DataCatalog — артефакты, синхронизированные узлом.
	DataCatalog []domain.ArtifactRef `json:"data_catalog,omitempty"`

	// Branches — branch log'и композитного узла, ключ — полный dot-path ветки.
	Branches map[string]*BranchLog `json:"branches,omitempty"`
}

// AddArtifacts добавляет ссылки на артефакты в журнал узла.
func (s *StepLog) AddArtifacts(refs []domain.ArtifactRef) {
	s.DataCatalog = append(s.DataCatalog, refs...)
}

// SetMetric записывает пользовательскую метрику.
// Повторная запись той же пары (key, step) перезаписывает значение.
func (s *StepLog) SetMetric(entry domain.MetricEntry) {
	if s.UserDefinedMetrics == nil {
		s.UserDefinedMetrics = make(map[string]any)
	}
	s.UserDefinedMetrics[entry.StorageKey()] = entry.Value
}

// BranchLog — журнал выполнения одной ветки композитного узла.
type BranchLog struct {
	// InternalName — dot-path ветки с подставленными значениями итераций.
	InternalName string `json:"internal_name"`

	// Status — статус ветки: RUNNING, затем SUCCESS или FAIL,
	// выставляемый её терминальным узлом.
	Status domain.Status `json:"status"`

	// Steps — step log'и узлов ветки в порядке диспетчеризации.
	Steps []*StepLog `json:"steps,omitempty"`
}

// RunLog — агрегат всех журналов одного запуска pipeline.
type RunLog struct {
	// RunID — уникальный идентификатор запуска.
	RunID string `json:"run_id"`

	// DagHash — хэш определения pipeline, использованного для запуска.
	DagHash string `json:"dag_hash,omitempty"`

	// UseCached — true, если запуск переиспользует предыдущий run log.
	UseCached bool `json:"use_cached,omitempty"`

	// OriginalRunID — идентификатор запуска, результаты которого
	// переиспользуются при re-run.
	OriginalRunID string `json:"original_run_id,omitempty"`

	// Tag — пользовательская метка запуска.
	Tag string `json:"tag,omitempty"`

	// Status — итоговый статус запуска.
	Status domain.Status `json:"status"`

	// Parameters — параметры run'а, включая установленные узлами.
	Parameters domain.Parameters `json:"parameters,omitempty"`

	// RunConfig — снимок конфигурации сервисов на момент запуска.
	RunConfig map[string]string `json:"run_config,omitempty"`

	// CreatedAt — время создания запуска.
	CreatedAt time.Time `json:"created_at"`

	// Steps — step log'и узлов корневого графа в порядке диспетчеризации.
	Steps []*StepLog `json:"steps,omitempty"`
}

// New создаёт новый RunLog в статусе RUNNING.
func New(runID string) *RunLog {
	return &RunLog{
		RunID:      runID,
		Status:     domain.StatusRunning,
		Parameters: domain.Parameters{},
		CreatedAt:  time.Now(),
	}
}

// NewStepLog создаёт step log в статусе PENDING.
func NewStepLog(name, internalName string, kind domain.NodeKind) *StepLog {
	return &StepLog{
		Name:         name,
		InternalName: internalName,
		Kind:         kind,
		Status:       domain.StatusPending,
		StartedAt:    time.Now(),
	}
}

// NewBranchLog создаёт branch log в статусе RUNNING.
func NewBranchLog(internalName string) *BranchLog {
	return &BranchLog{
		InternalName: internalName,
		Status:       domain.StatusRunning,
	}
}

// SearchStep ищет step log по dot-path, рекурсивно спускаясь
// во вложенные ветки.
func (r *RunLog) SearchStep(path string) (*StepLog, error) {
	step, _, err := r.locate(path)
	return step, err
}

// SearchBranch ищет branch log по dot-path.
// Пустой путь недопустим: корневой "веткой" является сам RunLog.
func (r *RunLog) SearchBranch(path string) (*BranchLog, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty branch path", ErrBranchLogNotFound)
	}
	segments := strings.Split(path, ".")
	stepPath := strings.Join(segments[:len(segments)-1], ".")
	step, _, err := r.locate(stepPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBranchLogNotFound, path)
	}
	branch, ok := step.Branches[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBranchLogNotFound, path)
	}
	return branch, nil
}

// locate возвращает step log по пути вместе со слайсом контейнера,
// в котором он лежит.
func (r *RunLog) locate(path string) (*StepLog, *[]*StepLog, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("%w: empty step path", ErrStepLogNotFound)
	}
	segments := strings.Split(path, ".")
	container := &r.Steps

	for i := 0; ; i += 2 {
		stepPath := strings.Join(segments[:i+1], ".")
		step := findInSlice(*container, stepPath)
		if step == nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrStepLogNotFound, path)
		}
		if i+1 == len(segments) {
			return step, container, nil
		}
		// Путь чётной длины заканчивается на ветке, а не на шаге.
		if i+2 >= len(segments) {
			return nil, nil, fmt.Errorf("%w: %s", ErrStepLogNotFound, path)
		}
		branchPath := strings.Join(segments[:i+2], ".")
		branch, ok := step.Branches[branchPath]
		if !ok {
			return nil, nil, fmt.Errorf("%w: branch %s", ErrStepLogNotFound, branchPath)
		}
		container = &branch.Steps
	}
}

func findInSlice(steps []*StepLog, internalName string) *StepLog {
	for _, s := range steps {
		if s.InternalName == internalName {
			return s
		}
	}
	return nil
}

// upsertStep добавляет step log в контейнер его родительской ветки
// или заменяет существующий с тем же dot-path.
func (r *RunLog) upsertStep(step *StepLog) error {
	segments := strings.Split(step.InternalName, ".")
	container := &r.Steps
	if len(segments) > 1 {
		branchPath := strings.Join(segments[:len(segments)-1], ".")
		branch, err := r.SearchBranch(branchPath)
		if err != nil {
			return err
		}
		container = &branch.Steps
	}

	for i, existing := range *container {
		if existing.InternalName == step.InternalName {
			(*container)[i] = step
			return nil
		}
	}
	*container = append(*container, step)
	return nil
}

// upsertBranch добавляет branch log в step log родительского
// композитного узла или заменяет существующий.
func (r *RunLog) upsertBranch(branch *BranchLog) error {
	segments := strings.Split(branch.InternalName, ".")
	if len(segments) < 2 {
		return fmt.Errorf("%w: branch path %q has no parent step", ErrBranchLogNotFound, branch.InternalName)
	}
	stepPath := strings.Join(segments[:len(segments)-1], ".")
	step, _, err := r.locate(stepPath)
	if err != nil {
		return err
	}
	if step.Branches == nil {
		step.Branches = make(map[string]*BranchLog)
	}
	step.Branches[branch.InternalName] = branch
	return nil
}

// clone возвращает глубокую копию run log через JSON round-trip.
func (r *RunLog) clone() (*RunLog, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal run log: %w", err)
	}
	var out RunLog
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal run log: %w", err)
	}
	return &out, nil
}

// Clone возвращает глубокую копию step log'а.
func (s *StepLog) Clone() (*StepLog, error) {
	return cloneStep(s)
}

func cloneStep(s *StepLog) (*StepLog, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal step log: %w", err)
	}
	var out StepLog
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal step log: %w", err)
	}
	return &out, nil
}
