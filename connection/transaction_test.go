package connection

import (
	"context"
	"database/sql"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/rwconn/config"
	"github.com/satishbabariya/rwconn/driver"
)

const countSQL = `SELECT COUNT(*) AS total FROM users`

func usersClient(t *testing.T) (*Connection, *QueryClient) {
	t.Helper()
	c := connect(t, sqliteConfig())
	createUsers(t, c.Client())
	db, err := c.GetClient()
	require.NoError(t, err)
	return c, db
}

func TestTransaction_RollbackDiscardsWrites(t *testing.T) {
	c, db := usersClient(t)
	ctx := context.Background()

	tx, err := db.Transaction(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Client().NumUsed())
	assert.Equal(t, TxActive, tx.State())

	_, err = tx.InsertQuery().Table("users").Insert(map[string]any{"username": "virk"}).Exec(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, countUsers(t, tx.Raw(countSQL)))

	require.NoError(t, tx.Rollback())
	assert.Equal(t, TxRolledBack, tx.State())
	assert.True(t, tx.IsCompleted())
	assert.Equal(t, 0, c.Client().NumUsed())

	rows, err := db.Query().From("users").All(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTransaction_CommitPersistsWrites(t *testing.T) {
	c, db := usersClient(t)
	ctx := context.Background()

	tx, err := db.Transaction(ctx, nil)
	require.NoError(t, err)

	_, err = tx.InsertQuery().Table("users").Insert(map[string]any{"username": "virk"}).Exec(ctx)
	require.NoError(t, err)
	_, err = tx.UpdateQuery().Table("users").Set("username", "nikk").Where("username", "virk").Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, tx.Commit())
	assert.Equal(t, TxCommitted, tx.State())
	assert.Equal(t, 0, c.Client().NumUsed())

	row, err := db.Query().From("users").First(ctx)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "nikk", row["username"])
}

func TestTransaction_ClosedAfterCompletion(t *testing.T) {
	_, db := usersClient(t)
	ctx := context.Background()

	tx, err := db.Transaction(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	_, err = tx.Query().From("users").All(ctx)
	assert.ErrorIs(t, err, ErrTransactionClosed)
	_, err = tx.InsertQuery().Table("users").Insert(map[string]any{"username": "x"}).Exec(ctx)
	assert.ErrorIs(t, err, ErrTransactionClosed)
	_, err = tx.UpdateQuery().Table("users").Set("username", "x").AllowAll().Exec(ctx)
	assert.ErrorIs(t, err, ErrTransactionClosed)
	_, err = tx.DeleteQuery().From("users").AllowAll().Exec(ctx)
	assert.ErrorIs(t, err, ErrTransactionClosed)
	_, err = tx.Raw(countSQL).All(ctx)
	assert.ErrorIs(t, err, ErrTransactionClosed)

	assert.ErrorIs(t, tx.Commit(), ErrTransactionClosed)
	assert.True(t, IsTransactionClosed(tx.Rollback()))
	assert.ErrorIs(t, tx.Savepoint(ctx, func(*Transaction) error { return nil }), ErrTransactionClosed)
}

func TestTransaction_CancelledContextStillReleases(t *testing.T) {
	c, db := usersClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	tx, err := db.Transaction(ctx, nil)
	require.NoError(t, err)

	cancel()
	_, err = tx.Raw(countSQL).All(ctx)
	assert.Error(t, err)

	require.NoError(t, tx.Rollback())
	assert.Equal(t, 0, c.Client().NumUsed())
}

func TestTransaction_DroppedIsReleased(t *testing.T) {
	c, db := usersClient(t)
	ctx := context.Background()

	func() {
		tx, err := db.Transaction(ctx, nil)
		require.NoError(t, err)
		_, err = tx.InsertQuery().Table("users").Insert(map[string]any{"username": "virk"}).Exec(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, c.Client().NumUsed())
	}()

	deadline := time.Now().Add(5 * time.Second)
	for c.Client().NumUsed() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("dropped transaction still holds its connection")
		}
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}

	rows, err := db.Query().From("users").All(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRunInTransaction(t *testing.T) {
	c, db := usersClient(t)
	ctx := context.Background()
	insert := func(tx *Transaction) error {
		_, err := tx.InsertQuery().Table("users").Insert(map[string]any{"username": "virk"}).Exec(ctx)
		return err
	}

	t.Run("commits on nil", func(t *testing.T) {
		require.NoError(t, db.RunInTransaction(ctx, nil, insert))
		assert.Equal(t, 1, countUsers(t, db.Raw(countSQL)))
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.RunInTransaction(ctx, nil, func(tx *Transaction) error {
			require.NoError(t, insert(tx))
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, countUsers(t, db.Raw(countSQL)))
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		assert.PanicsWithValue(t, "boom", func() {
			_ = db.RunInTransaction(ctx, nil, func(tx *Transaction) error {
				require.NoError(t, insert(tx))
				panic("boom")
			})
		})
		assert.Equal(t, 1, countUsers(t, db.Raw(countSQL)))
	})

	t.Run("fn may finish the transaction", func(t *testing.T) {
		err := db.RunInTransaction(ctx, nil, func(tx *Transaction) error {
			return tx.Rollback()
		})
		assert.NoError(t, err)
	})

	assert.Equal(t, 0, c.Client().NumUsed())
}

func TestTransaction_Savepoint(t *testing.T) {
	_, db := usersClient(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.RunInTransaction(ctx, nil, func(tx *Transaction) error {
		if _, err := tx.InsertQuery().Table("users").Insert(map[string]any{"username": "kept"}).Exec(ctx); err != nil {
			return err
		}

		err := tx.Savepoint(ctx, func(tx *Transaction) error {
			if _, err := tx.InsertQuery().Table("users").Insert(map[string]any{"username": "dropped"}).Exec(ctx); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		return tx.Savepoint(ctx, func(tx *Transaction) error {
			_, err := tx.InsertQuery().Table("users").Insert(map[string]any{"username": "nested"}).Exec(ctx)
			return err
		})
	})
	require.NoError(t, err)

	rows, err := db.Query().From("users").Select("username").OrderBy("id", "asc").All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "kept", rows[0]["username"])
	assert.Equal(t, "nested", rows[1]["username"])
}

func TestNewTxOptions(t *testing.T) {
	opts := NewTxOptions(Serializable, true)
	assert.Equal(t, sql.LevelSerializable, opts.Isolation)
	assert.True(t, opts.ReadOnly)
	assert.Equal(t, sql.LevelReadCommitted, IsolationLevel(42).ToSQLIsolationLevel())
}

// mockConnection connects through a go-sqlmock pool speaking the postgres
// dialect.
func mockConnection(t *testing.T) (*QueryClient, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	factory := driver.FactoryFunc(func(cfg config.Resolved) (driver.PooledClient, error) {
		return driver.NewPool(db, cfg)
	})
	c := connect(t, config.ConnectionConfig{Client: config.PostgreSQL}, WithFactory(factory))

	client, err := c.GetClient()
	require.NoError(t, err)
	return client, mock
}

func TestTransaction_SQLMockCommit(t *testing.T) {
	db, mock := mockConnection(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "users" ("username") VALUES ($1)`).
		WithArgs("virk").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := db.RunInTransaction(ctx, nil, func(tx *Transaction) error {
		_, err := tx.InsertQuery().Table("users").Insert(map[string]any{"username": "virk"}).Exec(ctx)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_SQLMockDriverErrorRollsBack(t *testing.T) {
	db, mock := mockConnection(t)
	ctx := context.Background()

	unique := &pq.Error{Code: "23505", Message: `duplicate key value violates unique constraint "users_username_key"`}
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "users" WHERE "id" = $1`).
		WithArgs(7).
		WillReturnError(unique)
	mock.ExpectRollback()

	err := db.RunInTransaction(ctx, nil, func(tx *Transaction) error {
		_, err := tx.DeleteQuery().From("users").Where("id", 7).Exec(ctx)
		return err
	})
	require.Error(t, err)

	var pqErr *pq.Error
	require.True(t, errors.As(err, &pqErr))
	assert.Same(t, unique, pqErr)
	assert.Equal(t, pq.ErrorCode("23505"), pqErr.Code)

	var connErr *Error
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "primary", connErr.Connection)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_SQLMockBeginFailure(t *testing.T) {
	db, mock := mockConnection(t)

	mock.ExpectBegin().WillReturnError(sql.ErrConnDone)

	_, err := db.Transaction(context.Background(), nil)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}
