package migration

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"medisync/internal/app/server/config"
)

type MockMigrator struct {
	mock.Mock
}

func (m *MockMigrator) Up() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMigrator) Close() (error, error) {
	args := m.Called()
	return args.Error(0), args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{DatabaseURI: "postgres://test", MigrationsPath: "migrations"}
}

func TestMigration_Up_Success(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Up").Return(nil)
	mockM.On("Close").Return(nil, nil)

	mg := New(testConfig(), func(source, db string) (Migrator, error) {
		return mockM, nil
	})

	assert.NoError(t, mg.Up())
	mockM.AssertExpectations(t)
}

func TestMigration_Up_NoChange(t *testing.T) {
	mockM := new(MockMigrator)

	// ErrNoChange means the schema is already current, not a failure.
	mockM.On("Up").Return(migrate.ErrNoChange)
	mockM.On("Close").Return(nil, nil)

	mg := New(testConfig(), func(source, db string) (Migrator, error) {
		return mockM, nil
	})

	assert.NoError(t, mg.Up())
}

func TestMigration_Up_EngineError(t *testing.T) {
	mg := New(testConfig(), func(source, db string) (Migrator, error) {
		return nil, errors.New("engine crash")
	})

	err := mg.Up()
	assert.Error(t, err)
	assert.Equal(t, "engine crash", err.Error())
}

func TestMigration_Up_CloseError(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Up").Return(nil)
	mockM.On("Close").Return(errors.New("source busy"), nil)

	mg := New(testConfig(), func(source, db string) (Migrator, error) {
		return mockM, nil
	})

	err := mg.Up()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "source busy")
}
