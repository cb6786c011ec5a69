package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/authdesk/internal/dbx"
	"github.com/dmitrijs2005/authdesk/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authdesk/internal/server/repositories/resettokens"
	"github.com/dmitrijs2005/authdesk/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can run
// any subset of repository calls inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	ResetTokens(db dbx.DBTX) resettokens.Repository
}
