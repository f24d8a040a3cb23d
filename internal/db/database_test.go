package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
)

func TestPostgresDSN(t *testing.T) {
	t.Parallel()

	dsn, err := PostgresDSN("postgres://shop:secret@db:5432/shop?sslmode=disable")
	require.NoError(t, err)
	assert.Contains(t, dsn, "dbname=shop")
	assert.Contains(t, dsn, "host=db")
	assert.Contains(t, dsn, "sslmode=disable")

	kv := "host=db user=shop dbname=shop"
	dsn, err = PostgresDSN(kv)
	require.NoError(t, err)
	assert.Equal(t, kv, dsn)

	_, err = PostgresDSN("")
	require.Error(t, err)

	_, err = PostgresDSN("postgres://%zz")
	require.Error(t, err)
}

func TestOpen_SQLiteAndMigrate(t *testing.T) {
	t.Parallel()

	gdb, err := Open(context.Background(), Options{Driver: "sqlite", URL: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })

	require.NoError(t, Migrate(gdb))
	require.NoError(t, Ping(context.Background(), gdb))

	for _, m := range models.All() {
		assert.True(t, gdb.Migrator().HasTable(m), "%T", m)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), Options{Driver: "oracle", URL: "x"})
	require.Error(t, err)
}
