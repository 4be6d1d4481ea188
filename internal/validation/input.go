package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinContractIDLength    = 1
	MaxContractIDLength    = 64
	MinPartyIDLength       = 1
	MaxPartyIDLength       = 64
	MinProofURILength      = 1
	MaxProofURILength      = 200
	MaxDisputeReasonLength = 500
	MaxMilestoneRefLength  = 64
)

// Идентификаторы попадают в путь URL и ключи Redis, поэтому набор символов ограничен.
var identifierRegex = regexp.MustCompile(`^[A-Za-z0-9._:@-]+$`)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

func validateIdentifier(fieldName, value string, min, max int) error {
	if value == "" {
		return fmt.Errorf("%s обязателен", fieldName)
	}
	if err := ValidateLength(fieldName, value, min, max); err != nil {
		return err
	}
	if !identifierRegex.MatchString(value) {
		return fmt.Errorf("%s содержит недопустимые символы", fieldName)
	}
	return nil
}

// ValidateContractID проверяет идентификатор контракта.
func ValidateContractID(contractID string) error {
	return validateIdentifier("идентификатор контракта", contractID, MinContractIDLength, MaxContractIDLength)
}

// ValidatePartyID проверяет идентификатор участника (клиента, исполнителя, администратора).
func ValidatePartyID(partyID string) error {
	return validateIdentifier("идентификатор участника", partyID, MinPartyIDLength, MaxPartyIDLength)
}

// ValidateProofURI проверяет ссылку на результат работы по этапу.
func ValidateProofURI(proofURI string) error {
	if err := ValidateNonEmpty("ссылка на результат", proofURI); err != nil {
		return err
	}
	if err := ValidateLength("ссылка на результат", proofURI, MinProofURILength, MaxProofURILength); err != nil {
		return err
	}

	// Допускаются любые схемы (https, ipfs, ar), но строка должна разбираться как URI
	parsed, err := url.Parse(proofURI)
	if err != nil || parsed.Scheme == "" {
		return fmt.Errorf("ссылка на результат должна быть URI со схемой")
	}
	return nil
}

// ValidateDisputeReason проверяет причину спора.
func ValidateDisputeReason(reason string) error {
	return ValidateLength("причина спора", reason, 0, MaxDisputeReasonLength)
}

// ValidateMilestoneRef проверяет необязательную ссылку на этап в прямом платеже.
func ValidateMilestoneRef(ref string) error {
	if ref == "" {
		return nil
	}
	return ValidateLength("ссылка на этап", ref, 0, MaxMilestoneRefLength)
}
