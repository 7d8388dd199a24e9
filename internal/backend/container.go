package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/shulgin/pipevine/internal/domain"
)

// Путь рабочей папки внутри контейнера.
const containerWorkDir = "/workdir"

// ContainerBackend выполняет команду через docker run.
//
// Рабочая папка монтируется в /workdir, поэтому артефакты и файл
// эмиссии остаются видимы хосту после завершения контейнера.
type ContainerBackend struct {
	defaultImage string
}

// NewContainerBackend создаёт контейнерный backend.
func NewContainerBackend(defaultImage string) *ContainerBackend {
	return &ContainerBackend{defaultImage: defaultImage}
}

// Execute запускает команду в одноразовом контейнере.
func (b *ContainerBackend) Execute(ctx context.Context, req *Request) (*Outcome, error) {
	parts := strings.Fields(req.Command)
	if len(parts) == 0 {
		return nil, ErrEmptyCommand
	}

	image := b.defaultImage
	if override := req.Config["docker_image"]; override != "" {
		image = override
	}
	if image == "" {
		return nil, errors.New("container backend: docker image is not set")
	}

	args := []string{
		"run", "--rm",
		"-v", req.WorkDir + ":" + containerWorkDir,
		"-w", containerWorkDir,
	}
	for _, key := range sortedKeys(req.Env) {
		val := req.Env[key]
		// Файл эмиссии переписываем на путь внутри контейнера.
		if key == domain.EmitFileEnv {
			val = rebasePath(val, req.WorkDir, containerWorkDir)
		}
		args = append(args, "-e", key+"="+val)
	}
	args = append(args, image)
	args = append(args, parts...)

	cmd := exec.CommandContext(ctx, "docker", args...)
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
	return nil, fmt.Errorf("start docker: %w", err)
}

// rebasePath заменяет префикс hostDir на containerDir.
func rebasePath(p, hostDir, containerDir string) string {
	if rest, ok := strings.CutPrefix(p, hostDir); ok {
		return containerDir + rest
	}
	return p
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
