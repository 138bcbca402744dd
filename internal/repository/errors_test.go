package repository

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	assert.Nil(t, translate(nil))
	assert.ErrorIs(t, translate(sql.ErrNoRows), ErrNotFound)

	other := errors.New("connection reset")
	assert.Same(t, other, translate(other))

	cases := []struct {
		name string
		err  error
		key  string
	}{
		{"mysql email", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.c' for key 'users.uq_users_email'"}, "email"},
		{"mysql handle named email", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'EMAIL-01' for key 'users.uq_users_handle'"}, "handle"},
		{"sqlite handle", errors.New("constraint failed: UNIQUE constraint failed: users.handle (2067)"), "handle"},
		{"sqlite other", errors.New("UNIQUE constraint failed: habits.id"), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := translate(tc.err)
			assert.ErrorIs(t, err, ErrDuplicate)
			var de *DuplicateError
			assert.True(t, errors.As(err, &de))
			assert.Equal(t, tc.key, de.Key)
		})
	}

	notDup := &mysql.MySQLError{Number: 1452, Message: "foreign key"}
	assert.NotErrorIs(t, translate(notDup), ErrDuplicate)
}
