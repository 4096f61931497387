package main

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		args    []string
		want    command
		wantErr bool
	}{
		{nil, command{name: "up"}, false},
		{[]string{"up"}, command{name: "up"}, false},
		{[]string{"down"}, command{name: "down", n: 1}, false},
		{[]string{"down", "2"}, command{name: "down", n: 2}, false},
		{[]string{"down", "0"}, command{}, true},
		{[]string{"force", "3"}, command{name: "force", n: 3}, false},
		{[]string{"force"}, command{}, true},
		{[]string{"force", "x"}, command{}, true},
		{[]string{"version"}, command{name: "version"}, false},
		{[]string{"sideways"}, command{}, true},
	}
	for _, tt := range tests {
		got, err := parseCommand(tt.args)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.args)
			continue
		}
		require.NoError(t, err, "%v", tt.args)
		assert.Equal(t, tt.want, got)
	}
}

type fakeMigrator struct {
	upErr   error
	steps   []int
	forced  int
	version uint
	dirty   bool
	versErr error
}

func (f *fakeMigrator) Up() error { return f.upErr }

func (f *fakeMigrator) Steps(n int) error {
	f.steps = append(f.steps, n)
	return nil
}

func (f *fakeMigrator) Force(v int) error {
	f.forced = v
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, f.dirty, f.versErr }

func TestCommandApply(t *testing.T) {
	m := &fakeMigrator{upErr: migrate.ErrNoChange}
	msg, err := command{name: "up"}.apply(m)
	require.NoError(t, err)
	assert.Equal(t, "migrations complete", msg)

	m.upErr = errors.New("syntax error")
	_, err = command{name: "up"}.apply(m)
	assert.ErrorContains(t, err, "migrate up")

	_, err = command{name: "down", n: 2}.apply(m)
	require.NoError(t, err)
	assert.Equal(t, []int{-2}, m.steps)

	_, err = command{name: "force", n: 1}.apply(m)
	require.NoError(t, err)
	assert.Equal(t, 1, m.forced)

	m.version, m.dirty = 2, true
	msg, err = command{name: "version"}.apply(m)
	require.NoError(t, err)
	assert.Equal(t, "version 2 (dirty=true)", msg)

	m.versErr = migrate.ErrNilVersion
	msg, err = command{name: "version"}.apply(m)
	require.NoError(t, err)
	assert.Equal(t, "no migrations applied", msg)
}

func TestCheckConnection(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	require.NoError(t, checkConnection(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckConnectionPingFails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err = checkConnection(context.Background(), db)
	assert.ErrorContains(t, err, "ping db")
	assert.NoError(t, mock.ExpectationsWereMet())
}
