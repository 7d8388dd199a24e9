package domain

// Status — статус выполнения узла, ветки или всего run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCESS
//	                  ↘ FAIL
//
// Step log создаётся в статусе PENDING при диспетчеризации узла,
// переходит в терминальный статус ровно один раз и после этого неизменяем.
// Повторный запуск создаёт новую запись попытки, а не мутирует старую.
type Status string

const (
	// StatusPending — запись создана, выполнение ещё не началось.
	StatusPending Status = "PENDING"

	// StatusRunning — узел (или ветка) в процессе выполнения.
	StatusRunning Status = "RUNNING"

	// StatusSuccess — выполнение успешно завершено.
	StatusSuccess Status = "SUCCESS"

	// StatusFail — выполнение завершилось с ошибкой.
	StatusFail Status = "FAIL"
)

// IsTerminal возвращает true, если статус финальный.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFail:
		return true
	default:
		return false
	}
}

// NodeKind — тип узла DAG.
type NodeKind string

const (
	// KindTask — исполняемый узел: команда, запускаемая compute backend'ом.
	KindTask NodeKind = "task"

	// KindAsIs — узел-заглушка: всегда успешен, команду не выполняет,
	// но синхронизация каталога для него работает как для task.
	KindAsIs NodeKind = "as-is"

	// KindParallel — композитный узел с именованными ветками,
	// выполняемыми одновременно.
	KindParallel NodeKind = "parallel"

	// KindMap — композитный узел с одной веткой, реплицируемой
	// по элементам итерируемого параметра.
	KindMap NodeKind = "map"

	// KindDag — композитный узел, содержащий вложенный DAG.
	KindDag NodeKind = "dag"

	// KindSuccess — терминальный узел успешного завершения ветки.
	KindSuccess NodeKind = "success"

	// KindFail — терминальный узел неуспешного завершения ветки.
	KindFail NodeKind = "fail"
)

// IsComposite возвращает true для узлов, тело которых — вложенный DAG.
func (k NodeKind) IsComposite() bool {
	switch k {
	case KindParallel, KindMap, KindDag:
		return true
	default:
		return false
	}
}

// IsTerminal возвращает true для узлов success и fail.
func (k NodeKind) IsTerminal() bool {
	switch k {
	case KindSuccess, KindFail:
		return true
	default:
		return false
	}
}

// KnownNodeKinds — все поддерживаемые типы узлов.
var KnownNodeKinds = []NodeKind{
	KindTask, KindAsIs, KindParallel, KindMap, KindDag, KindSuccess, KindFail,
}
