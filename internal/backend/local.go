package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/shulgin/pipevine/internal/domain"
)

// Сколько хвоста вывода сохраняем в Outcome.Message.
const outputTailLimit = 4096

// LocalBackend выполняет команду подпроцессом на хосте.
type LocalBackend struct{}

// NewLocalBackend создаёт локальный backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{}
}

// Execute запускает команду и ждёт её завершения.
//
// Команда разбивается по пробелам без shell-интерпретации:
// пайпы и подстановки должны жить внутри самого скрипта.
func (b *LocalBackend) Execute(ctx context.Context, req *Request) (*Outcome, error) {
	parts := strings.Fields(req.Command)
	if len(parts) == 0 {
		return nil, ErrEmptyCommand
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = req.WorkDir
	cmd.Env = mergeEnv(os.Environ(), req.Env)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	if err == nil {
		return &Outcome{Status: domain.StatusSuccess, ExitCode: 0}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &Outcome{
			Status:   domain.StatusFail,
			ExitCode: exitErr.ExitCode(),
			Message:  tail(output.Bytes(), outputTailLimit),
		}, nil
	}

	// Процесс не запустился: битый путь, нет прав и т.п.
	return nil, fmt.Errorf("start command %q: %w", parts[0], err)
}

// mergeEnv накладывает overlay поверх базового окружения.
func mergeEnv(base []string, overlay map[string]string) []string {
	env := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overlay[key]; ok {
			continue
		}
		env = append(env, kv)
	}
	for k, v := range overlay {
		env = append(env, k+"="+v)
	}
	return env
}

func tail(b []byte, limit int) string {
	if len(b) > limit {
		b = b[len(b)-limit:]
	}
	return strings.TrimSpace(string(b))
}
