package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable возвращается, если таблица недоступна и кэша нет.
	ErrDataUnavailable = errors.New("данные таблицы недоступны")
	// ErrNotFound возвращается, если запись с указанным именем отсутствует.
	ErrNotFound = errors.New("запись не найдена")
	// ErrPermissionDenied возвращается, если таблица отклонила запись.
	ErrPermissionDenied = errors.New("нет прав на редактирование таблицы")
	// ErrRecipientUnreachable означает, что получатель заблокировал бота или чат недоступен.
	ErrRecipientUnreachable = errors.New("получатель недоступен")
	// ErrStoreMissing возвращается хранилищем подписчиков, которое ещё ни разу не сохранялось.
	ErrStoreMissing = errors.New("хранилище подписчиков отсутствует")
	// ErrStoreCorrupt возвращается, если сохранённый список подписчиков не удаётся разобрать.
	ErrStoreCorrupt = errors.New("хранилище подписчиков повреждено")
)

// ValidationError описывает некорректный ввод пользователя. Hint содержит подсказку,
// которую можно показать автору запроса.
type ValidationError struct {
	Field string
	Hint  string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
