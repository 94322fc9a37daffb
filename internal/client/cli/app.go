// Package cli implements pairsyncctl, an operator REPL that acts as one user
// against the pairsync gRPC API.
package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"

	"github.com/dmitrijs2005/pairsync/internal/client/client"
	"github.com/dmitrijs2005/pairsync/internal/client/config"
	"github.com/dmitrijs2005/pairsync/internal/server/auth"
	gs "github.com/dmitrijs2005/pairsync/internal/server/grpc"
)

// Syncshells is the API surface the REPL drives.
type Syncshells interface {
	CreateSyncshell(ctx context.Context, alias, password string) (*gs.CreateSyncshellResponse, error)
	JoinSyncshell(ctx context.Context, gidOrAlias string) error
}

type App struct {
	config *config.Config
	api    Syncshells
	closer io.Closer
	in     io.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	if c.UID == "" {
		return nil, errors.New("a UID is required (-u)")
	}

	token, err := auth.GenerateToken(c.UID, []byte(c.SecretKey), c.RequestTimeout*6)
	if err != nil {
		return nil, err
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, token)
	if err != nil {
		return nil, err
	}

	return &App{config: c, api: apiClient, closer: apiClient, in: os.Stdin, out: os.Stdout}, nil
}

func (a *App) Run(ctx context.Context) {
	if a.closer != nil {
		defer a.closer.Close()
	}
	runREPL(ctx, a, bufio.NewScanner(a.in))
}
