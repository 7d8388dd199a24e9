package domain

import (
	"fmt"
	"time"
)

// Parameters — параметры run'а, доступные всем узлам.
//
// Значения сериализуются в JSON при передаче узлу через окружение
// и при сохранении в run log.
type Parameters map[string]any

// Clone возвращает неглубокую копию параметров.
func (p Parameters) Clone() Parameters {
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// MetricEntry — одна пользовательская метрика, привязанная к узлу.
//
// Ключ хранения определяется шагом: key при step == 0,
// иначе key_{step}. Повторная запись той же пары (key, step)
// перезаписывает предыдущее значение.
type MetricEntry struct {
	// Key — имя метрики, заданное пользователем.
	Key string `json:"key"`

	// Value — значение метрики.
	Value any `json:"value"`

	// Step — необязательный индекс шага (итерация обучения и т.п.).
	Step int `json:"step,omitempty"`
}

// StorageKey возвращает ключ, под которым метрика хранится в step log.
func (m MetricEntry) StorageKey() string {
	if m.Step == 0 {
		return m.Key
	}
	return fmt.Sprintf("%s_%d", m.Key, m.Step)
}

// ArtifactRef — ссылка на артефакт каталога.
//
// Каталог — единственный источник правды для байтов артефактов
// между шагами: узел никогда не читает локальную файловую систему
// другого узла напрямую.
type ArtifactRef struct {
	// Name — имя артефакта относительно рабочей папки данных.
	Name string `json:"name"`

	// ProducedBy — dot-path узла, поместившего артефакт в каталог.
	ProducedBy string `json:"produced_by,omitempty"`

	// ComputeFolder — рабочая папка, из которой артефакт был материализован.
	ComputeFolder string `json:"compute_folder,omitempty"`

	// Stage — get или put, в зависимости от направления синхронизации.
	Stage string `json:"stage"`

	// SyncedAt — время синхронизации.
	SyncedAt time.Time `json:"synced_at"`
}

// EmitKind — тип записи, испускаемой узлом через emit-файл.
type EmitKind string

const (
	// EmitParameter — узел устанавливает параметр run'а.
	EmitParameter EmitKind = "parameter"

	// EmitMetric — узел публикует пользовательскую метрику.
	EmitMetric EmitKind = "metric"
)

// EmitRecord — одна запись emit-файла узла.
//
// Узел пишет JSON-строки в файл, путь к которому передаётся
// через переменную окружения. После завершения попытки движок
// разбирает файл и раскладывает записи по назначению.
type EmitRecord struct {
	// Kind — parameter или metric.
	Kind EmitKind `json:"kind"`

	// Key — имя параметра или метрики.
	Key string `json:"key"`

	// Value — значение.
	Value any `json:"value"`

	// Step — индекс шага для метрик.
	Step int `json:"step,omitempty"`
}
