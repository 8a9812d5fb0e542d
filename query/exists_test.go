package query

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceExists(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT count.* FROM `transactions`").
		WithArgs("txn-001").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := ResourceExists(db, "transactions", "id", "txn-001")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceExists_RejectsUnknownColumn(t *testing.T) {
	db, _, cleanup := newMockDB(t)
	defer cleanup()

	_, err := ResourceExists(db, "transactions", "secret", "x")
	assert.Error(t, err)
}

func TestFindResourceOrFail_NotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT count.* FROM `categories`").
		WithArgs("cat-office-9").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := FindResourceOrFail(db, "categories", "id", "cat-office-9", "CATEGORY_NOT_FOUND", "类别不存在")
	require.Error(t, err)

	nf, ok := err.(*NotFoundError)
	require.True(t, ok)
	assert.Equal(t, "CATEGORY_NOT_FOUND", nf.Code)
	assert.Equal(t, "类别不存在", nf.Message)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindResourceOrFail_Found(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT count.* FROM `users`").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := FindResourceOrFail(db, "users", "id", "user-1", "USER_NOT_FOUND", "用户不存在")
	assert.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
