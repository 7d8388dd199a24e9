// Package rerun строит план повторного запуска pipeline.
//
// План решает для каждого узла корневой цепочки, переиспользовать ли
// успешный результат предыдущего запуска или выполнить узел заново.
// Кэширование действует до первого неуспешного узла: всё после него
// выполняется заново.
package rerun
