// Package catalog содержит каталог артефактов pipeline.
//
// Каталог — единственный канал передачи данных между узлами,
// рабочие папки которых могут находиться в изолированных средах
// (разные контейнеры, разные машины). Перед выполнением узла
// артефакты по маске копируются из каталога в рабочую папку (get),
// после успешного завершения — обратно в каталог (put).
//
// Реализации:
//   - file.go  — каталог в локальной файловой системе (по умолчанию)
//   - minio.go — каталог в S3-совместимом объектном хранилище
package catalog
