package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldMigrate(t *testing.T) {
	// debug 模式默认迁移
	assert.True(t, ShouldMigrate("debug", false))
	assert.True(t, ShouldMigrate("", false))

	// release 模式必须显式强制
	assert.False(t, ShouldMigrate("release", false))
	assert.True(t, ShouldMigrate("release", true))
}
