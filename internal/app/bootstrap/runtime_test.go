package bootstrap

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"

	appconfig "github.com/wadtech/wad-calendar-service/internal/config"
	"github.com/wadtech/wad-calendar-service/pkg/logging"
)

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.Default(), true)
	assert.Nil(t, client)
}

func TestBuildRedisClientVerifySuccess(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.Default(), true)
	assert.NotNil(t, client)
}

func TestBuildRedisClientVerifyFailureReturnsNil(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: "127.0.0.1:1"}

	client := BuildRedisClient(context.Background(), cfg, logging.Default(), true)
	assert.Nil(t, client)
}

func TestBuildRedisClientSkipVerify(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: "127.0.0.1:1"}

	client := BuildRedisClient(context.Background(), cfg, logging.Default(), false)
	assert.NotNil(t, client)
}
