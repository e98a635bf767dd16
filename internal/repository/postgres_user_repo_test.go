package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hitoshi/microearn/internal/model"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{"id", "name", "email", "photo_url", "role", "coins", "available_coin", "created_at", "updated_at"}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestPostgresUserRepo_FindByEmail_ScansRole(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u-1", "Alice", "alice@example.com", "", "Admin", "100", "0", now, now))

	user, err := repo.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.True(t, user.IsAdmin())
	assert.True(t, user.Coins.Equal(decimal.NewFromInt(100)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepo_FindByID_NotFoundReturnsNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	user, err := repo.FindByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepo_List_EmptyIsNonNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users ORDER BY created_at")).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestPostgresUserRepo_Create_DuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &model.User{ID: "u-1", Email: "dup@example.com", Role: model.RoleWorker})
	assert.True(t, errors.Is(err, ErrDuplicate), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepo_Create_OtherErrorIsWrapped(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	boom := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).WillReturnError(boom)

	err := repo.Create(context.Background(), &model.User{ID: "u-1", Email: "a@example.com", Role: model.RoleBuyer})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrDuplicate))
}

func TestPostgresUserRepo_ReduceCoins_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET coins = coins - $1")).
		WithArgs("30", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"coins"}).AddRow("70"))

	balance, err := repo.ReduceCoins(context.Background(), "u-1", decimal.NewFromInt(30))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(70)), "balance = %s", balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepo_ReduceCoins_InsufficientBalance(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET coins = coins - $1")).
		WithArgs("500", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"coins"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := repo.ReduceCoins(context.Background(), "u-1", decimal.NewFromInt(500))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepo_ReduceCoins_UserNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET coins = coins - $1")).
		WillReturnRows(sqlmock.NewRows([]string{"coins"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := repo.ReduceCoins(context.Background(), "ghost", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepo_DeleteByID_RecordsActivity(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	activity := &model.AdminActivity{
		ID:         "act-1",
		AdminEmail: "admin@example.com",
		Action:     model.AdminActionDeleteUser,
		TargetID:   "u-2",
		CreatedAt:  time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs("u-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO admin_activities")).
		WithArgs("act-1", "admin@example.com", "delete_user", "u-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deleted, err := repo.DeleteByID(context.Background(), "u-2", activity)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepo_DeleteByID_MissingUserSkipsActivity(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	deleted, err := repo.DeleteByID(context.Background(), "u-9", &model.AdminActivity{ID: "act-1"})
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
