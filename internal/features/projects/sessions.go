// Package projects — sessions.go работает с именами сессий тайм-трекера.
// В БД имена хранятся одной строкой через запятую (наследие схемы),
// поэтому парсим их ровно один раз на границе — дальше по коду ходит
// уже готовое множество.
package projects

import "strings"

// SessionSet — множество имён сессий тайм-трекера.
type SessionSet map[string]struct{}

// ParseSessionSet разбирает строку вида "alpha, beta,gamma".
// Пустые элементы и лишние пробелы отбрасываются; пустая или
// нераспознаваемая строка даёт пустое множество.
func ParseSessionSet(raw string) SessionSet {
	set := make(SessionSet)
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

// Empty сообщает, пусто ли множество.
func (s SessionSet) Empty() bool {
	return len(s) == 0
}

// Contains проверяет наличие имени.
func (s SessionSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Intersects сообщает, есть ли у множеств хотя бы одно общее имя.
func (s SessionSet) Intersects(other SessionSet) bool {
	// Итерируемся по меньшему множеству
	small, big := s, other
	if len(big) < len(small) {
		small, big = big, small
	}
	for name := range small {
		if _, ok := big[name]; ok {
			return true
		}
	}
	return false
}

// Names возвращает имена множества (порядок не гарантируется).
func (s SessionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	return names
}
