package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"anoa.com/pointboard/internal/entity"
	"anoa.com/pointboard/pkg/apperror"
	"anoa.com/pointboard/pkg/cache"
	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "points.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entity.PointRecord{}, &entity.UserPoints{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestLedgerAppendFindDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	for _, amount := range []int64{10, 5, 7} {
		require.NoError(t, repo.Append(ctx, &entity.PointRecord{UserID: "u1", Amount: amount, Reason: "quiz"}))
	}
	require.NoError(t, repo.Append(ctx, &entity.PointRecord{UserID: "u2", Amount: 3, Reason: "login"}))

	records, err := repo.FindByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(10), records[0].Amount)
	assert.Equal(t, int64(7), records[2].Amount)
	assert.Less(t, records[0].ID, records[1].ID)

	removed, err := repo.DeleteByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	records, err = repo.FindByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, records)

	others, err := repo.FindByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, others, 1)
}

func TestLedgerUpdateReason(t *testing.T) {
	db := newTestDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	record := &entity.PointRecord{UserID: "u1", Amount: 10, Reason: "quiz"}
	require.NoError(t, repo.Append(ctx, record))

	updated, err := repo.UpdateReason(ctx, record.ID, "bonus")
	require.NoError(t, err)
	assert.Equal(t, "bonus", updated.Reason)
	assert.Equal(t, int64(10), updated.Amount)

	records, err := repo.FindByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "bonus", records[0].Reason)

	_, err = repo.UpdateReason(ctx, 9999, "nope")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestCounterInsertIfAbsent(t *testing.T) {
	db := newTestDB(t)
	repo := NewCounterRepository(db)
	ctx := context.Background()

	created, err := repo.InsertIfAbsent(ctx, "u1", 10)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.InsertIfAbsent(ctx, "u1", 99)
	require.NoError(t, err)
	assert.False(t, created)

	row, err := repo.FindByUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, int64(10), row.TotalPoints)
	assert.Equal(t, int64(1), row.Version)

	missing, err := repo.FindByUser(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCounterConditionalUpdate(t *testing.T) {
	db := newTestDB(t)
	repo := NewCounterRepository(db)
	ctx := context.Background()

	_, err := repo.InsertIfAbsent(ctx, "u1", 10)
	require.NoError(t, err)

	changed, err := repo.ConditionalUpdate(ctx, "u1", 5, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	// version 1 is stale now
	changed, err = repo.ConditionalUpdate(ctx, "u1", 100, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), changed)

	row, err := repo.FindByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), row.TotalPoints)
	assert.Equal(t, int64(2), row.Version)

	require.NoError(t, repo.Delete(ctx, "u1"))
	row, err = repo.FindByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestCounterFindTop(t *testing.T) {
	db := newTestDB(t)
	repo := NewCounterRepository(db)
	ctx := context.Background()

	seed := map[string]int64{"alice": 30, "bob": 50, "carol": 30, "dave": 10}
	for user, total := range seed {
		_, err := repo.InsertIfAbsent(ctx, user, total)
		require.NoError(t, err)
	}

	top, err := repo.FindTop(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "bob", top[0].UserID)
	assert.Equal(t, "alice", top[1].UserID)
	assert.Equal(t, "carol", top[2].UserID)

	none, err := repo.FindTop(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTransactorRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	tx := NewTransactor(db)
	ctx := context.Background()
	boom := errors.New("boom")

	err := tx.WithinTransaction(ctx, func(ledger LedgerRepository, counter CounterRepository) error {
		if err := ledger.Append(ctx, &entity.PointRecord{UserID: "u1", Amount: 10, Reason: "quiz"}); err != nil {
			return err
		}
		if _, err := counter.InsertIfAbsent(ctx, "u1", 10); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	records, err := NewLedgerRepository(db).FindByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, records)
	row, err := NewCounterRepository(db).FindByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestTransactorCommits(t *testing.T) {
	db := newTestDB(t)
	tx := NewTransactor(db)
	ctx := context.Background()

	err := tx.WithinTransaction(ctx, func(ledger LedgerRepository, counter CounterRepository) error {
		if err := ledger.Append(ctx, &entity.PointRecord{UserID: "u1", Amount: 10, Reason: "quiz"}); err != nil {
			return err
		}
		_, err := counter.InsertIfAbsent(ctx, "u1", 10)
		return err
	})
	require.NoError(t, err)

	row, err := NewCounterRepository(db).FindByUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, int64(10), row.TotalPoints)
}

func newTestTotalCache(t *testing.T) (TotalCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTotalCache(cache.NewRedisCache(client), 10*time.Minute), mr
}

func TestTotalCacheRoundTrip(t *testing.T) {
	tc, mr := newTestTotalCache(t)
	ctx := context.Background()

	got, err := tc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, tc.Set(ctx, "u1", &CachedTotal{UserID: "u1", Total: 15, Version: 2, InsertedAt: now}))
	assert.True(t, mr.Exists("points:total:u1"))
	assert.Greater(t, mr.TTL("points:total:u1"), time.Duration(0))

	got, err = tc.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(15), got.Total)
	assert.True(t, now.Equal(got.InsertedAt))

	require.NoError(t, tc.Delete(ctx, "u1"))
	assert.False(t, mr.Exists("points:total:u1"))
}

func TestTotalCacheCorruptPayload(t *testing.T) {
	tc, mr := newTestTotalCache(t)
	require.NoError(t, mr.Set("points:total:u1", "not-json"))

	_, err := tc.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, apperror.ErrCacheDecode)
}
