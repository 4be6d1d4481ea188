package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// Эскроу
	ErrCodeDuplicateContract         ErrorCode = "DUPLICATE_CONTRACT"
	ErrCodeContractNotFound          ErrorCode = "CONTRACT_NOT_FOUND"
	ErrCodeContractNotActive         ErrorCode = "CONTRACT_NOT_ACTIVE"
	ErrCodeInvalidMilestone          ErrorCode = "INVALID_MILESTONE"
	ErrCodeMilestoneNotFound         ErrorCode = "MILESTONE_NOT_FOUND"
	ErrCodeMilestoneAlreadySubmitted ErrorCode = "MILESTONE_ALREADY_SUBMITTED"
	ErrCodeMilestoneAlreadyApproved  ErrorCode = "MILESTONE_ALREADY_APPROVED"
	ErrCodeInvalidContractState      ErrorCode = "INVALID_CONTRACT_STATE"

	// Авторизации платежей
	ErrCodeAuthorizationNotFound  ErrorCode = "AUTHORIZATION_NOT_FOUND"
	ErrCodeDuplicateAuthorization ErrorCode = "DUPLICATE_AUTHORIZATION"
	ErrCodeAuthorizationInactive  ErrorCode = "AUTHORIZATION_INACTIVE"
	ErrCodeExceedsPerMilestone    ErrorCode = "EXCEEDS_PER_MILESTONE"
	ErrCodeExceedsTotal           ErrorCode = "EXCEEDS_TOTAL"

	// Общие для обоих реестров
	ErrCodeInvalidAmount          ErrorCode = "INVALID_AMOUNT"
	ErrCodeUnauthorizedClient     ErrorCode = "UNAUTHORIZED_CLIENT"
	ErrCodeUnauthorizedFreelancer ErrorCode = "UNAUTHORIZED_FREELANCER"
	ErrCodeUnauthorizedAdmin      ErrorCode = "UNAUTHORIZED_ADMIN"
	ErrCodeArithmeticOverflow     ErrorCode = "ARITHMETIC_OVERFLOW"
	ErrCodeArithmeticUnderflow    ErrorCode = "ARITHMETIC_UNDERFLOW"
	ErrCodeTransferFailed         ErrorCode = "TRANSFER_FAILED"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	// Fatal помечает нарушение целостности реестра, а не ошибку пользователя.
	Fatal bool
	Cause error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду, чтобы errors.Is работал с сентинелами ниже.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Fatal:      isFatalCode(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Fatal:      isFatalCode(code),
		Cause:      err,
	}
}

// Newf как New, но с форматированием сообщения.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound, ErrCodeContractNotFound, ErrCodeMilestoneNotFound, ErrCodeAuthorizationNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeUnauthorizedClient, ErrCodeUnauthorizedFreelancer, ErrCodeUnauthorizedAdmin:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeInvalidAmount, ErrCodeInvalidMilestone:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeDuplicateContract, ErrCodeDuplicateAuthorization,
		ErrCodeMilestoneAlreadySubmitted, ErrCodeMilestoneAlreadyApproved:
		return http.StatusConflict
	case ErrCodeContractNotActive, ErrCodeInvalidContractState, ErrCodeAuthorizationInactive,
		ErrCodeExceedsPerMilestone, ErrCodeExceedsTotal:
		return http.StatusUnprocessableEntity
	case ErrCodeTransferFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func isFatalCode(code ErrorCode) bool {
	return code == ErrCodeArithmeticOverflow || code == ErrCodeArithmeticUnderflow
}

// CodeOf возвращает код ошибки или пустую строку, если это не AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode проверяет код ошибки по всей цепочке обёрток.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case ErrCodeNotFound, ErrCodeContractNotFound, ErrCodeMilestoneNotFound, ErrCodeAuthorizationNotFound:
		return true
	}
	return false
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.HTTPStatus == http.StatusForbidden
}

func IsValidation(err error) bool {
	return HasCode(err, ErrCodeValidation)
}

// IsFatal сообщает о нарушении инварианта (переполнение, уход в минус).
func IsFatal(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Fatal
}

var (
	ErrUnauthorized = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden    = New(ErrCodeForbidden, "недостаточно прав")

	ErrDuplicateContract         = New(ErrCodeDuplicateContract, "контракт с таким идентификатором уже существует")
	ErrContractNotFound          = New(ErrCodeContractNotFound, "контракт не найден")
	ErrContractNotActive         = New(ErrCodeContractNotActive, "контракт не активен")
	ErrInvalidMilestone          = New(ErrCodeInvalidMilestone, "некорректный индекс этапа")
	ErrMilestoneNotFound         = New(ErrCodeMilestoneNotFound, "этап не найден")
	ErrMilestoneAlreadySubmitted = New(ErrCodeMilestoneAlreadySubmitted, "этап уже сдан")
	ErrMilestoneAlreadyApproved  = New(ErrCodeMilestoneAlreadyApproved, "этап уже принят")
	ErrInvalidContractState      = New(ErrCodeInvalidContractState, "недопустимое состояние контракта для операции")

	ErrAuthorizationNotFound  = New(ErrCodeAuthorizationNotFound, "авторизация платежей не найдена")
	ErrDuplicateAuthorization = New(ErrCodeDuplicateAuthorization, "авторизация для этого контракта уже существует")
	ErrAuthorizationInactive  = New(ErrCodeAuthorizationInactive, "авторизация платежей неактивна")
	ErrExceedsPerMilestone    = New(ErrCodeExceedsPerMilestone, "сумма превышает лимит на этап")
	ErrExceedsTotal           = New(ErrCodeExceedsTotal, "сумма превышает общий авторизованный объём")

	ErrInvalidAmount          = New(ErrCodeInvalidAmount, "некорректная сумма")
	ErrUnauthorizedClient     = New(ErrCodeUnauthorizedClient, "операция доступна только клиенту контракта")
	ErrUnauthorizedFreelancer = New(ErrCodeUnauthorizedFreelancer, "операция доступна только исполнителю контракта")
	ErrUnauthorizedAdmin      = New(ErrCodeUnauthorizedAdmin, "операция доступна только администратору")
	ErrArithmeticOverflow     = New(ErrCodeArithmeticOverflow, "переполнение суммы")
	ErrArithmeticUnderflow    = New(ErrCodeArithmeticUnderflow, "сумма ушла в минус")
)
