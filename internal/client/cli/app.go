// Package cli implements the interactive backupd client: account setup,
// license management, and encrypted backup upload/download.
package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/vkozyrev/backupd/internal/client/api"
	"github.com/vkozyrev/backupd/internal/client/config"
)

type App struct {
	config *config.Config
	client *api.Client

	// encryptionKey is the account key received at register/login. All
	// payloads are encrypted with it locally before upload.
	encryptionKey []byte
	userName      string

	reader *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	client := api.NewClient(c.ServerAddr, c.RequestTimeout)
	return &App{
		config: c,
		client: client,
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.encryptionKey != nil
}

func (a *App) Run(ctx context.Context) {
	a.Root(ctx)
}
