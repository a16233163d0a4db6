package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/atinyakov/DexWatch/internal/models"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() models.StoredReading {
	return models.StoredReading{
		ID:     "r1",
		PollID: "p1",
		Reading: models.Reading{
			BG:              110,
			Trend:           models.Flat,
			TrendEnglish:    "Flat",
			LastReadingTime: 1700000000,
			ReadingLag:      60,
		},
	}
}

func TestPut(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisReadingCache(client, 15*time.Minute)

	data, err := json.Marshal(sample())
	require.NoError(t, err)
	mock.ExpectSet(latestKey, string(data), 15*time.Minute).SetVal("OK")

	require.NoError(t, c.Put(context.Background(), sample()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatest(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisReadingCache(client, time.Minute)

	data, err := json.Marshal(sample())
	require.NoError(t, err)
	mock.ExpectGet(latestKey).SetVal(string(data))

	got, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatest_Missing(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisReadingCache(client, time.Minute)

	mock.ExpectGet(latestKey).RedisNil()

	_, err := c.Latest(context.Background())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLatest_Error(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisReadingCache(client, time.Minute)

	mock.ExpectGet(latestKey).SetErr(errors.New("connection reset"))

	_, err := c.Latest(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrNotFound)
}

func TestLatest_Corrupt(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisReadingCache(client, time.Minute)

	mock.ExpectGet(latestKey).SetVal("{")

	_, err := c.Latest(context.Background())
	assert.Error(t, err)
}
