package domain

import "fmt"

// MapVar — одна привязка переменной итерации map-узла.
type MapVar struct {
	// Key — имя параметра (iterate_as map-узла).
	Key string `json:"key"`

	// Value — значение текущей итерации.
	Value any `json:"value"`
}

// MapVars — упорядоченный набор привязок переменных итерации.
//
// Порядок важен: при вложенных map-узлах плейсхолдеры в dot-path
// подставляются во внешнем порядке объявления.
type MapVars []MapVar

// With возвращает новый набор с добавленной привязкой.
// Исходный набор не модифицируется.
func (m MapVars) With(key string, value any) MapVars {
	out := make(MapVars, 0, len(m)+1)
	out = append(out, m...)
	out = append(out, MapVar{Key: key, Value: value})
	return out
}

// PathValue возвращает строковое представление значения для dot-path.
func (v MapVar) PathValue() string {
	return fmt.Sprint(v.Value)
}
