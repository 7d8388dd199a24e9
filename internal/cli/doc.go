// Package cli реализует инструмент командной строки pipevine.
//
// # Обзор
//
// CLI — единственный пользовательский интерфейс движка: он загружает
// конфигурацию и определение pipeline, собирает сервисы (хранилище
// run log'ов, каталог, backend, трекер, секреты) и запускает движок
// в том же процессе.
//
// # Команды
//
//   - run — выполнить pipeline; exit code 0 при успехе, 1 при провале
//   - retry — повторить запуск, переиспользуя успешные узлы
//   - validate — скомпилировать определение без выполнения
//   - show — показать run log завершённого или идущего запуска
//
// Скрытые команды exec-node и exec-branch выполняют отдельный узел
// или ветку существующего запуска в своём процессе.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: pipevine show RUN --json | jq .
package cli
