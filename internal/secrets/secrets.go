package secrets

import (
	"errors"
	"fmt"
)

var (
	// ErrSecretNotFound — секрет с таким именем не найден у провайдера.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrUnknownProviderKind — неизвестный тип провайдера в конфигурации.
	ErrUnknownProviderKind = errors.New("unknown secrets provider kind")
)

// Виды провайдеров.
const (
	KindDoNothing = "do-nothing"
	KindEnv       = "env"
	KindDotenv    = "dotenv"
)

// Provider отдаёт секреты по имени.
type Provider interface {
	// Get возвращает значение секрета; ErrSecretNotFound, если его нет.
	Get(name string) (string, error)
}

// Config — настройки провайдера секретов.
type Config struct {
	// Kind — do-nothing, env или dotenv.
	Kind string `yaml:"kind" env:"SECRETS_KIND"`

	// Path — путь к dotenv-файлу; по умолчанию ".env".
	Path string `yaml:"path" env:"SECRETS_DOTENV_PATH"`
}

// New создаёт провайдер по конфигурации; по умолчанию do-nothing.
func New(cfg Config) (Provider, error) {
	switch cfg.Kind {
	case KindDoNothing, "":
		return DoNothingProvider{}, nil
	case KindEnv:
		return EnvProvider{}, nil
	case KindDotenv:
		path := cfg.Path
		if path == "" {
			path = ".env"
		}
		return NewDotenvProvider(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProviderKind, cfg.Kind)
	}
}

// DoNothingProvider не хранит секретов: любой запрос — промах.
type DoNothingProvider struct{}

func (DoNothingProvider) Get(name string) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
}
