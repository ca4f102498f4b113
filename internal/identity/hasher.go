package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrEmptyToken возвращается, когда клиент не передал токен устройства.
// Отправка без токена не имеет основы доверия и отклоняется до верификации.
var ErrEmptyToken = errors.New("device token is empty")

// Hash вычисляет псевдоним устройства из сырого клиентского токена.
// SHA-256 дает детерминированность и стойкость к коллизиям - на этом
// хэше держится весь механизм банов, сам токен никогда не сохраняется.
func Hash(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrEmptyToken
	}

	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:]), nil
}
