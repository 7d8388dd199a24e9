package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/shulgin/pipevine/internal/domain"
)

var (
	// ErrUnknownBackendKind — неизвестный тип backend'а в конфигурации.
	ErrUnknownBackendKind = errors.New("unknown backend kind")

	// ErrEmptyCommand — у task-узла пустая команда.
	ErrEmptyCommand = errors.New("empty command")
)

// Виды backend'ов.
const (
	KindLocal          = "local"
	KindLocalContainer = "local-container"
)

// Request — запрос на выполнение команды одного task-узла.
type Request struct {
	// Command — командная строка; разбивается по пробелам,
	// без интерпретации shell.
	Command string

	// WorkDir — рабочая папка процесса. Для контейнерного backend'а
	// монтируется внутрь контейнера, поэтому EmitFile должен лежать
	// внутри неё.
	WorkDir string

	// Env — переменные окружения, добавляемые к окружению процесса.
	// Сюда входят параметры run'а и служебные переменные.
	Env map[string]string

	// EmitFile — путь к файлу, через который команда возвращает
	// параметры и метрики (JSON-строки).
	EmitFile string

	// Config — переопределения backend'а на уровне узла,
	// например docker_image.
	Config map[string]string
}

// Outcome — результат выполнения команды.
type Outcome struct {
	// Status — SUCCESS при нулевом коде выхода, иначе FAIL.
	Status domain.Status

	// ExitCode — код выхода процесса; -1, если процесс не запустился.
	ExitCode int

	// Message — хвост объединённого stdout/stderr; заполняется
	// при неуспехе для диагностики.
	Message string
}

// Backend выполняет команду task-узла.
type Backend interface {
	Execute(ctx context.Context, req *Request) (*Outcome, error)
}

// Config — настройки backend'а выполнения.
type Config struct {
	// Kind — local или local-container.
	Kind string `yaml:"kind" env:"BACKEND_KIND"`

	// DockerImage — образ по умолчанию для local-container.
	// Узел может переопределить его через backend_config.docker_image.
	DockerImage string `yaml:"docker_image" env:"BACKEND_DOCKER_IMAGE"`
}

// Registry — реестр backend'ов по виду.
type Registry struct {
	backends map[string]Backend
}

// NewRegistry создаёт реестр с зарегистрированными backend'ами по умолчанию.
func NewRegistry(cfg Config) *Registry {
	r := &Registry{backends: make(map[string]Backend)}
	r.Register(KindLocal, NewLocalBackend())
	r.Register(KindLocalContainer, NewContainerBackend(cfg.DockerImage))
	return r
}

// Register добавляет backend для вида.
func (r *Registry) Register(kind string, b Backend) {
	r.backends[kind] = b
}

// Get возвращает backend по виду; пустой вид означает local.
func (r *Registry) Get(kind string) (Backend, error) {
	if kind == "" {
		kind = KindLocal
	}
	b, ok := r.backends[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackendKind, kind)
	}
	return b, nil
}
