// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — запись или ресурс реестра не найдены.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — запись с таким идентификатором уже существует.
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrUpstreamUnavailable — хранилище, identity service или реестр недоступны.
	ErrUpstreamUnavailable = errors.New("внешняя зависимость недоступна")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
)
