package database

import "errors"

// Ошибки хранилища. Сервис и обработчики различают их через errors.Is,
// поэтому обёртки fmt.Errorf с %w обязаны сохранять эти значения.
var (
	// ErrNotFound — сущности с таким id не существует.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument — данные нарушают инварианты сущности
	// (пустой текст, откат режима назад и т.п.).
	ErrInvalidArgument = errors.New("invalid argument")
)
