package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// Максимальные длины для различных полей
	MaxUsernameLength    = 32
	MaxNonceLength       = 64
	MinSiweNonceLength   = 8
	MaxDisplayNameLength = 128
)

// Telegram username regex (допускает буквы, цифры, подчеркивания, 5-32 символа)
var telegramUsernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{5,32}$`)

// Значение nonce должно пройти как start-параметр deep link: base64url, до 64 символов
var nonceRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// EIP-4361: nonce = 8*( ALPHA / DIGIT )
var siweNonceRegex = regexp.MustCompile(`^[A-Za-z0-9]{8,}$`)

// ValidateUsername проверяет Telegram username
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	username = strings.TrimSpace(username)
	if len(username) > MaxUsernameLength+1 {
		return fmt.Errorf("username cannot exceed %d characters", MaxUsernameLength)
	}

	// Убираем @ если есть
	username = strings.TrimPrefix(username, "@")

	if !telegramUsernameRegex.MatchString(username) {
		return fmt.Errorf("username must contain only letters, numbers, and underscores, 5-32 characters")
	}

	return nil
}

// ValidateNonce проверяет формат значения nonce
func ValidateNonce(value string) error {
	if value == "" {
		return fmt.Errorf("nonce cannot be empty")
	}

	if len(value) > MaxNonceLength {
		return fmt.Errorf("nonce cannot exceed %d characters", MaxNonceLength)
	}

	if !nonceRegex.MatchString(value) {
		return fmt.Errorf("nonce must be base64url")
	}

	return nil
}

// ValidateSiweNonce проверяет nonce из сообщения Sign-In with Ethereum
func ValidateSiweNonce(value string) error {
	if len(value) > MaxNonceLength {
		return fmt.Errorf("nonce cannot exceed %d characters", MaxNonceLength)
	}

	if !siweNonceRegex.MatchString(value) {
		return fmt.Errorf("nonce must be at least %d alphanumeric characters", MinSiweNonceLength)
	}

	return nil
}

// IsValidNonce проверяет nonce без описания ошибки
func IsValidNonce(value string) bool {
	return ValidateNonce(value) == nil
}

// TruncateName обрезает отображаемое имя до MaxDisplayNameLength символов
func TruncateName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= MaxDisplayNameLength {
		return name
	}
	return string([]rune(name)[:MaxDisplayNameLength])
}
