// Package backend выполняет команды task-узлов.
//
// Backend получает готовый запрос (команда, рабочая папка, окружение,
// файл для эмиссии значений) и возвращает результат выполнения.
// Реализации: LocalBackend (подпроцесс на хосте) и ContainerBackend
// (docker run с монтированием рабочей папки).
package backend
