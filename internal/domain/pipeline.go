package domain

// PipelineDef — декларативное определение pipeline.
//
// Это "программа" для pipevine: описание DAG, который нужно выполнить.
// Обычно загружается из YAML-файла блоком "dag":
//
//	dag:
//	  start_at: fetch
//	  nodes:
//	    fetch:
//	      kind: task
//	      command: python fetch.py
//	      next: train
//	    train:
//	      kind: task
//	      command: python train.py
//	      next: done
//	    done:
//	      kind: success
//	    broken:
//	      kind: fail
type PipelineDef struct {
	// StartAt — имя узла, с которого начинается обход.
	StartAt string `yaml:"start_at" json:"start_at"`

	// Description — описание назначения pipeline.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Nodes — определения узлов по имени.
	Nodes map[string]NodeDef `yaml:"nodes" json:"nodes"`
}

// NodeDef — определение одного узла DAG.
type NodeDef struct {
	// Kind — тип узла: task, as-is, parallel, map, dag, success, fail.
	Kind NodeKind `yaml:"kind" json:"kind"`

	// Command — команда для выполнения (только для task).
	Command string `yaml:"command,omitempty" json:"command,omitempty"`

	// Next — имя следующего узла при успехе.
	// Обязателен для всех узлов, кроме success и fail.
	Next string `yaml:"next,omitempty" json:"next,omitempty"`

	// OnFailure — имя узла, к которому переходим при ошибке.
	// Не более одного на узел. Если не задан, ошибка узла
	// завершает ветку со статусом FAIL.
	OnFailure string `yaml:"on_failure,omitempty" json:"on_failure,omitempty"`

	// MaxAttempts — максимальное количество попыток выполнения (включая первую).
	// 0 трактуется как 1. Retry выполняется движком до маршрутизации ошибки.
	MaxAttempts int `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty"`

	// Catalog — настройки синхронизации артефактов для узла.
	Catalog *CatalogDef `yaml:"catalog,omitempty" json:"catalog,omitempty"`

	// Secrets — имена секретов, которые нужны команде узла.
	// Провайдер секретов резолвит их перед выполнением.
	Secrets []string `yaml:"secrets,omitempty" json:"secrets,omitempty"`

	// Branches — ветки параллельного выполнения (только для parallel).
	Branches map[string]PipelineDef `yaml:"branches,omitempty" json:"branches,omitempty"`

	// Branch — единственная ветка map-узла или тело dag-узла.
	Branch *PipelineDef `yaml:"branch,omitempty" json:"branch,omitempty"`

	// IterateOn — имя параметра run'а со списком значений (только для map).
	IterateOn string `yaml:"iterate_on,omitempty" json:"iterate_on,omitempty"`

	// IterateAs — имя параметра, под которым значение итерации
	// видно узлам ветки (только для map).
	IterateAs string `yaml:"iterate_as,omitempty" json:"iterate_as,omitempty"`

	// BackendConfig — переопределения настроек compute backend'а
	// для этого узла (например docker_image для local-container).
	BackendConfig map[string]string `yaml:"backend_config,omitempty" json:"backend_config,omitempty"`
}

// CatalogDef — настройки каталога для узла.
//
// Get выполняется перед запуском узла: артефакты по маске копируются
// из каталога в рабочую папку compute. Put выполняется после успешного
// завершения: артефакты по маске копируются из рабочей папки в каталог.
type CatalogDef struct {
	// Get — маски артефактов, забираемых из каталога перед выполнением.
	Get []string `yaml:"get,omitempty" json:"get,omitempty"`

	// Put — маски артефактов, помещаемых в каталог после выполнения.
	Put []string `yaml:"put,omitempty" json:"put,omitempty"`

	// ComputeDataFolder — переопределение рабочей папки данных для узла.
	ComputeDataFolder string `yaml:"compute_data_folder,omitempty" json:"compute_data_folder,omitempty"`
}
