// Package config загружает конфигурацию сервисов и определения pipeline.
//
// Конфигурация сервисов читается из YAML-файла и переопределяется
// переменными окружения с префиксом PIPEVINE_. Определение pipeline —
// отдельный YAML-файл с блоком "dag".
package config
