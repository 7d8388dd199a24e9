// Package tracker отправляет параметры и метрики run'а во внешнюю
// систему трекинга экспериментов и читает файл эмиссии, через который
// команды возвращают значения движку.
package tracker
