// Package engine обходит скомпилированный DAG и выполняет его узлы.
//
// Движок — конечный автомат с одним курсором на активную ветку:
// корневой граф начинается с одного курсора, композитные узлы
// (parallel, map, dag) порождают дочерние курсоры для своих веток.
// Ошибка узла — данные, а не исключение: она записывается в step log
// и маршрутизируется по ребру on_failure, если оно есть, иначе ветка
// завершается статусом FAIL. Процесс аварийно останавливают только
// структурные проблемы: ошибки каталога, нарушение инвариантов,
// недоступное хранилище.
package engine
