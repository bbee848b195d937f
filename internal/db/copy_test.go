package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"zip", "dest_rides"}
	mock.ExpectCopyFrom(pgx.Identifier{"run_zips"}, cols).WillReturnResult(2)

	n, err := CopyFrom(context.Background(), mock, "run_zips", cols, [][]any{{"20001", 1}, {"20002", 4}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n, err := CopyFrom(context.Background(), mock, "run_zips", []string{"zip"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCopyFrom_ShortWrite(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"run_zips"}, []string{"zip"}).WillReturnResult(1)

	_, err = CopyFrom(context.Background(), mock, "run_zips", []string{"zip"}, [][]any{{"a"}, {"b"}})
	assert.Error(t, err)
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"run_zips"}, []string{"zip"}).WillReturnError(assert.AnError)

	_, err = CopyFrom(context.Background(), mock, "run_zips", []string{"zip"}, [][]any{{"a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO run_zips")
}
