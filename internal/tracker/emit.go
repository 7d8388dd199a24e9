package tracker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shulgin/pipevine/internal/domain"
)

// ReadEmitFile разбирает файл эмиссии узла: по одной JSON-записи
// на строку, пустые строки пропускаются.
//
// Отсутствующий файл означает, что узел ничего не испустил.
func ReadEmitFile(path string) ([]domain.EmitRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open emit file: %w", err)
	}
	defer f.Close()

	var records []domain.EmitRecord
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec domain.EmitRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("emit file line %d: %w", line, err)
		}
		if rec.Kind != domain.EmitParameter && rec.Kind != domain.EmitMetric {
			return nil, fmt.Errorf("emit file line %d: unknown kind %q", line, rec.Kind)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read emit file: %w", err)
	}
	return records, nil
}

// SplitEmitted раскладывает записи на параметры и метрики.
//
// Повторно испущенный параметр или метрика с той же парой
// (key, step) перезаписывает предыдущее значение.
func SplitEmitted(records []domain.EmitRecord) (domain.Parameters, []domain.MetricEntry) {
	params := make(domain.Parameters)
	metricIdx := make(map[string]int)
	var metrics []domain.MetricEntry

	for _, rec := range records {
		switch rec.Kind {
		case domain.EmitParameter:
			params[rec.Key] = rec.Value
		case domain.EmitMetric:
			entry := domain.MetricEntry{Key: rec.Key, Value: rec.Value, Step: rec.Step}
			if i, ok := metricIdx[entry.StorageKey()]; ok {
				metrics[i] = entry
				continue
			}
			metricIdx[entry.StorageKey()] = len(metrics)
			metrics = append(metrics, entry)
		}
	}
	return params, metrics
}

// CaptureTrackedEnv снимает значения переменных с префиксом
// PIPEVINE_TRACK_ из переданного окружения. Снимок сохраняется
// в step log, но в трекер не отправляется.
func CaptureTrackedEnv(env map[string]string) map[string]string {
	captured := make(map[string]string)
	for k, v := range env {
		if strings.HasPrefix(k, domain.TrackEnvPrefix) {
			captured[strings.TrimPrefix(k, domain.TrackEnvPrefix)] = v
		}
	}
	return captured
}
