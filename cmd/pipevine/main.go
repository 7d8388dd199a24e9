// pipevine — движок выполнения pipeline.
//
// Использование:
//
//	pipevine [--config FILE] [--json] <command> [flags]
//
// Команды:
//
//	run       Выполнить pipeline
//	retry     Повторить запуск, переиспользуя успешные узлы
//	validate  Проверить определение pipeline
//	show      Показать run log запуска
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shulgin/pipevine/internal/cli"
	"github.com/shulgin/pipevine/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	// Инициализируем structured logging
	telemetry.SetupLogger()

	// Graceful shutdown: SIGINT/SIGTERM отменяют контекст запуска
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCmd(version)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
