package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fides-dpp/trust-engine/internal/core/ports"
	"github.com/fides-dpp/trust-engine/internal/db"
)

// Fixture - Handle testing fixture configuration
type Fixture struct {
	storage              *db.Storage
	identityRepository   ports.IdentityRepository
	statusListRepository ports.StatusListRepository
	dteIndexRepository   ports.DteIndexRepository
}

// NewFixture - constructor
func NewFixture(storage *db.Storage) *Fixture {
	return &Fixture{
		storage:              storage,
		identityRepository:   NewIdentity(),
		statusListRepository: NewStatusList(),
		dteIndexRepository:   NewDteIndex(),
	}
}

// ExecQueryParams - handle the query and the arguments for that query.
type ExecQueryParams struct {
	Query     string
	Arguments []interface{}
}

// ExecQuery - Execute a query for testing purpose.
func (f *Fixture) ExecQuery(t *testing.T, params ExecQueryParams) {
	t.Helper()
	_, err := f.storage.Pgx.Exec(context.Background(), params.Query, params.Arguments...)
	assert.NoError(t, err)
}
