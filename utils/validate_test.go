package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone("+8613800138000"))
	assert.True(t, ValidatePhone("13800138000"))
	assert.True(t, ValidatePhone("+14155552671"))

	assert.False(t, ValidatePhone(""))
	assert.False(t, ValidatePhone("abc"))
	assert.False(t, ValidatePhone("+0123456"))
	assert.False(t, ValidatePhone("12345"))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "+86****00", MaskPhone("+8613800138000"))
	assert.Equal(t, "***", MaskPhone("123"))
}
