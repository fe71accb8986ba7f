package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/jinford/kb-ask/internal/interface/httpapi"
)

// ServerStartAction はHTTP APIサーバーを起動する
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd.String("env"), cmd.Bool("memory"))
	if err != nil {
		return err
	}
	defer app.Close()

	port := app.Config.ServerPort
	if cmd.IsSet("port") {
		port = cmd.Int("port")
	}

	handler := httpapi.NewHandler(app.Ingestion, app.Query, app.Logger)
	server := httpapi.NewServer(handler, port, app.Logger)
	return server.Run(ctx)
}
