package persistence

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/model"
)

func userRows(u model.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "user_name", "password", "created_at", "updated_at"}).
		AddRow(u.ID, u.Name, u.UserName, u.Password, u.CreatedAt, u.UpdatedAt)
}

func sampleUser() model.User {
	ts := time.Date(2026, 3, 4, 1, 2, 10, 0, time.UTC)
	return model.User{
		ID:        1,
		Name:      "Halil Enes Daghan",
		UserName:  "halilenesdaghan",
		Password:  "a252f77af72638ea5a0f9e5fbe5f2b2e",
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func TestUserRepository_GetById(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewUserRepository(db)
	expected := sampleUser()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, user_name, password, created_at, updated_at FROM users WHERE id = $1`)).
		WithArgs(1).
		WillReturnRows(userRows(expected))

	res, err := repository.GetById(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, expected, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByUserName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewUserRepository(db)
	expected := sampleUser()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, user_name, password, created_at, updated_at FROM users WHERE user_name = $1`)).
		WithArgs("halilenesdaghan").
		WillReturnRows(userRows(expected))

	res, err := repository.GetByUserName(context.Background(), "halilenesdaghan")
	require.NoError(t, err)
	require.Equal(t, expected, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewUserRepository(db)
	user := sampleUser()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users (name, user_name, password, created_at, updated_at) VALUES ($1, $2, $3, $4, NOW())`)).
		WithArgs(user.Name, user.UserName, user.Password, user.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repository.CreateUser(context.Background(), user)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByUserName_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, user_name, password, created_at, updated_at FROM users WHERE user_name = $1`)).
		WithArgs("ghost").
		WillReturnError(fmt.Errorf("query error"))

	res, err := repository.GetByUserName(context.Background(), "ghost")
	require.Error(t, err)
	require.Equal(t, model.User{}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}
