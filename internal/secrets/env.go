package secrets

import (
	"fmt"
	"os"
)

// EnvProvider берёт секреты из окружения процесса движка.
type EnvProvider struct{}

func (EnvProvider) Get(name string) (string, error) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	return value, nil
}
