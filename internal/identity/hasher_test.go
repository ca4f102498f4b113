package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_Deterministic(t *testing.T) {
	// Один и тот же токен всегда дает один и тот же псевдоним
	first, err := Hash("device-token-123")
	require.NoError(t, err)

	second, err := Hash("device-token-123")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64) // hex-представление SHA-256
}

func TestHash_DistinctTokens(t *testing.T) {
	first, err := Hash("device-a")
	require.NoError(t, err)

	second, err := Hash("device-b")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestHash_KnownValue(t *testing.T) {
	// Зафиксированное значение, чтобы смена алгоритма не прошла незамеченной:
	// смена хэша обнулила бы все существующие баны
	got, err := Hash("abc")
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)
}

func TestHash_EmptyToken(t *testing.T) {
	_, err := Hash("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyToken)

	// Пробельный токен также отклоняется
	_, err = Hash("   ")
	assert.ErrorIs(t, err, ErrEmptyToken)
}
