package database

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_MemoryDriverWithoutRedis(t *testing.T) {
	db := &DB{}

	assert.Equal(t, map[string]string{"postgres": StatusDisabled, "redis": StatusDisabled}, db.Status(context.Background()))
	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.NoError(t, db.Close())
}

func TestStatus_RedisUp(t *testing.T) {
	client, mock := redismock.NewClientMock()
	db := &DB{Redis: client}

	mock.ExpectPing().SetVal("PONG")
	mock.ExpectPing().SetVal("PONG")

	assert.Equal(t, StatusUp, db.Status(context.Background())["redis"])
	require.NoError(t, db.HealthCheck(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatus_RedisDown(t *testing.T) {
	client, mock := redismock.NewClientMock()
	db := &DB{Redis: client}

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	mock.ExpectPing().SetErr(errors.New("connection refused"))

	assert.Equal(t, StatusDown, db.Status(context.Background())["redis"])
	err := db.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}
