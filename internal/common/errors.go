// Package common — errors.go определяет закрытый набор кодов ошибок,
// которые используются во всех модулях движка экономики.
// Денежные операции никогда не отдают наружу «сырые» ошибки БД:
// наружу уходит только код из этого набора плюс числовой контекст
// (сколько нужно / сколько есть).
package common

import (
	"errors"
	"fmt"
)

// Code — машинный код ошибки. Набор закрыт: клиенты матчатся по нему.
type Code string

const (
	CodeUnauthorized      Code = "UNAUTHORIZED"       // нет сессии или роль banned
	CodeNotFound          Code = "NOT_FOUND"          // товар/заказ/проект не найден
	CodeOutOfStock        Code = "OUT_OF_STOCK"       // товара нет на складе
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS" // не хватает скрапов
	CodeMaxProbability    Code = "MAX_PROBABILITY"    // буст уже упирается в 100%
	CodeNothingToUndo     Code = "NOTHING_TO_UNDO"    // нет апгрейда, который можно откатить
	CodeInvalidInput      Code = "INVALID_INPUT"      // некорректное количество/ID
	CodeInternal          Code = "INTERNAL"           // неожиданная ошибка хранилища
)

// Error — типизированная ошибка экономики.
// Required/Available заполняются только для INSUFFICIENT_FUNDS.
type Error struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Required  int64  `json:"required,omitempty"`  // сколько скрапов нужно
	Available int64  `json:"available,omitempty"` // сколько скрапов есть
}

// Error реализует интерфейс error.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError создаёт ошибку с кодом и сообщением.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// ErrUnauthorized — запрос без валидной сессии.
func ErrUnauthorized() *Error {
	return NewError(CodeUnauthorized, "требуется авторизация")
}

// ErrNotFound — сущность не найдена.
func ErrNotFound(what string) *Error {
	return NewError(CodeNotFound, what+" не найден")
}

// ErrOutOfStock — остаток товара меньше запрошенного количества.
func ErrOutOfStock() *Error {
	return NewError(CodeOutOfStock, "товар закончился")
}

// ErrInsufficientFunds — не хватает скрапов.
// Несёт required/available, чтобы клиент показал конкретное сообщение.
func ErrInsufficientFunds(required, available int64) *Error {
	return &Error{
		Code:      CodeInsufficientFunds,
		Message:   fmt.Sprintf("недостаточно скрапов: нужно %d, есть %d", required, available),
		Required:  required,
		Available: available,
	}
}

// ErrMaxProbability — вероятность уже 100%, буст покупать некуда.
func ErrMaxProbability() *Error {
	return NewError(CodeMaxProbability, "вероятность уже на максимуме")
}

// ErrNothingToUndo — нет апгрейда, который разрешено откатить.
func ErrNothingToUndo() *Error {
	return NewError(CodeNothingToUndo, "нечего отменять")
}

// ErrInvalidInput — некорректный ввод (количество, ID и т.п.).
func ErrInvalidInput(message string) *Error {
	return NewError(CodeInvalidInput, message)
}

// ErrInternal — неожиданная ошибка. Детали остаются в логах.
func ErrInternal() *Error {
	return NewError(CodeInternal, "внутренняя ошибка")
}

// AsError достаёт *Error из цепочки ошибок.
// Всё, что не из нашего набора, наружу уходит как INTERNAL.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal()
}
