package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, Postgres), mock
}

func TestDialect_Rebind(t *testing.T) {
	q := `SELECT a FROM t WHERE x = $1 AND y = $12`
	assert.Equal(t, q, Postgres.rebind(q))
	assert.Equal(t, `SELECT a FROM t WHERE x = ? AND y = ?`, SQLite.rebind(q))
}

func TestOpen_UnsupportedDialect(t *testing.T) {
	_, err := Open(context.Background(), Dialect("oracle"), "")
	require.Error(t, err)
}

func TestSQLite_BroadcastAndList(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	r1, err := s.Broadcast(ctx, "addr", []byte("one"))
	require.NoError(t, err)
	r2, err := s.Broadcast(ctx, "addr", []byte("two"))
	require.NoError(t, err)
	_, err = s.Broadcast(ctx, "other", []byte("x"))
	require.NoError(t, err)

	assert.True(t, r1.Broadcasted)
	assert.Less(t, r1.Sequence, r2.Sequence)

	txs, err := s.Transactions(ctx, "addr")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, []byte("one"), txs[0].Payload)
	assert.Equal(t, []byte("two"), txs[1].Payload)
	assert.Equal(t, r1.ID, txs[0].ID)
	assert.Equal(t, "addr", txs[0].Address)
	assert.WithinDuration(t, time.Now(), txs[0].CreatedAt, time.Minute)

	empty, err := s.Transactions(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLite_NilPayload(t *testing.T) {
	s := openSQLite(t)
	_, err := s.Broadcast(context.Background(), "addr", nil)
	require.NoError(t, err)
}

func TestSQLite_PublicKeys(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	_, err := s.PublicKey(ctx, "addr")
	require.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, s.RegisterKey(ctx, "addr", "age1first"))
	require.NoError(t, s.RegisterKey(ctx, "addr", "age1second"))
	got, err := s.PublicKey(ctx, "addr")
	require.NoError(t, err)
	assert.Equal(t, "age1second", got)

	require.NoError(t, s.RegisterKeys(ctx, map[string]string{"a": "age1a", "b": "age1b"}))
	got, err = s.PublicKey(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "age1b", got)
}

func TestPostgres_Broadcast(t *testing.T) {
	s, mock := newMockStore(t)

	q := `(?s)^INSERT\s+INTO\s+transactions\s*\(id,\s*address,\s*payload,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+seq\s*$`
	mock.ExpectQuery(q).
		WithArgs(sqlmock.AnyArg(), "addr", []byte("p"), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(7)))

	r, err := s.Broadcast(context.Background(), "addr", []byte("p"))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), r.Sequence)
	assert.NotEmpty(t, r.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BroadcastError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`INSERT INTO transactions`).WillReturnError(errors.New("db down"))

	_, err := s.Broadcast(context.Background(), "addr", []byte("p"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestPostgres_TransactionsQueryError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT id, seq, address, payload, created_at FROM transactions`).
		WithArgs("addr").
		WillReturnError(errors.New("boom"))

	_, err := s.Transactions(context.Background(), "addr")
	require.ErrorContains(t, err, "failed to select transactions")
}

func TestPostgres_TransactionsScan(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, seq, address, payload, created_at FROM transactions`).
		WithArgs("addr").
		WillReturnRows(sqlmock.NewRows([]string{"id", "seq", "address", "payload", "created_at"}).
			AddRow("t1", int64(1), "addr", []byte("a"), now.UnixNano()).
			AddRow("t2", int64(5), "addr", []byte("b"), now.UnixNano()))

	txs, err := s.Transactions(context.Background(), "addr")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, uint64(5), txs[1].Sequence)
	assert.True(t, now.Equal(txs[0].CreatedAt))
}

func TestPostgres_PublicKeyErrors(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT public_key FROM public_keys`).WithArgs("a").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT public_key FROM public_keys`).WithArgs("b").WillReturnError(errors.New("db down"))

	_, err := s.PublicKey(context.Background(), "a")
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.PublicKey(context.Background(), "b")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgres_RegisterKeysRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO public_keys`).WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	err := s.RegisterKeys(context.Background(), map[string]string{"a": "age1a"})
	require.ErrorContains(t, err, "constraint")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_UsesDialectDir(t *testing.T) {
	s, _ := newMockStore(t)

	orig := gooseUpContext
	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	defer func() { gooseUpContext = orig }()

	require.NoError(t, s.RunMigrations(context.Background()))
	assert.Equal(t, "postgres", gotDir)
}

func TestRunMigrations_Error(t *testing.T) {
	s, _ := newMockStore(t)

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	err := s.RunMigrations(context.Background())
	require.EqualError(t, err, "boom")
}
