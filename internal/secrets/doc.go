// Package secrets отдаёт секреты командам task-узлов.
//
// Провайдеры: do-nothing (секретов нет), env (секреты берутся из
// окружения процесса движка), dotenv (секреты читаются из файла
// формата KEY=VALUE).
package secrets
