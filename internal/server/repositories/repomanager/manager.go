// Package repomanager vends repository implementations bound to a DBTX, so
// services can run any repository either on the bare connection or inside a
// transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/vkozyrev/backupd/internal/dbx"
	"github.com/vkozyrev/backupd/internal/server/repositories/backups"
	"github.com/vkozyrev/backupd/internal/server/repositories/licenses"
	"github.com/vkozyrev/backupd/internal/server/repositories/refreshtokens"
	"github.com/vkozyrev/backupd/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Licenses(db dbx.DBTX) licenses.Repository
	Backups(db dbx.DBTX) backups.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
