// Package projects — overlap.go вычитает повторно засчитанные часы.
//
// Одна многомесячная сессия тайм-трекера может быть привязана к нескольким
// зашипленным проектам одного участника. Чтобы часы не зачлись дважды,
// более поздний проект «платит» за пересечение: из его часов вычитаются
// часы всех строго более ранних проектов с общей сессией.
//
// Функции чистые: никакого I/O, ошибок не бывает — некорректный ввод
// трактуется как «ничего не вычитать».
package projects

// EffectiveHours возвращает зачётные часы проекта с учётом пересечений
// сессий с другими зашипленными проектами того же участника.
//
// Алгоритм:
//  1. Берём hoursOverride ?? hours ?? 0. Если у проекта нет имён сессий
//     или нет момента первого шипа — возвращаем как есть.
//  2. Для каждого ДРУГОГО проекта, зашипленного СТРОГО раньше и имеющего
//     хотя бы одну общую сессию, накапливаем его собственные часы
//     (тоже с учётом оверрайда — оверрайды каскадируются).
//  3. Результат = max(0, часы - вычет).
//
// Равные моменты шипа не вычитают друг из друга: иначе два проекта,
// одобренных одним батчем, обнулили бы друг друга.
func EffectiveHours(p *Project, siblings []*Project) float64 {
	hours := p.BaseHours()

	set := ParseSessionSet(p.WorkSessions)
	if set.Empty() || p.FirstShippedAt == nil {
		return hours
	}

	var deduction float64
	for _, other := range siblings {
		if other.ID == p.ID {
			continue
		}
		if other.FirstShippedAt == nil || !other.FirstShippedAt.Before(*p.FirstShippedAt) {
			continue
		}
		otherSet := ParseSessionSet(other.WorkSessions)
		if otherSet.Empty() || !set.Intersects(otherSet) {
			continue
		}
		deduction += other.BaseHours()
	}

	result := hours - deduction
	if result < 0 {
		return 0
	}
	return result
}
