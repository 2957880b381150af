package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quietdrop/internal/cryptographic/dh"
	"quietdrop/internal/model"
	"quietdrop/internal/protocol/envelope"
	"quietdrop/internal/repository/keyfile"
	"quietdrop/internal/service/app"
	"quietdrop/internal/service/client"
	"quietdrop/internal/utils/log"
)

type senderFunc func(ctx context.Context, env *model.Envelope, addr string) error

func (f senderFunc) Send(ctx context.Context, env *model.Envelope, addr string) error {
	return f(ctx, env, addr)
}

func clientCmd() *cobra.Command {
	var (
		name    string
		message string
		wsURL   string
	)

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Seal and send a message to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			serverKey, err := resolveServerKey(ctx)
			if err != nil {
				return err
			}

			c := client.New(cfg.IOTimeout)
			var sender app.Sender = c
			addr := cfg.ServerAddr
			if wsURL != "" {
				sender = senderFunc(c.SendWS)
				addr = wsURL
			}

			a := app.NewApp(dh.GenerateKeyPair(), serverKey, addr, sender, cfg.ClientRecipient)
			if message == "" {
				return a.Run(ctx)
			}

			if err := a.Submit(ctx, name, cfg.ClientRecipient, message); err != nil {
				return err
			}
			fmt.Println("Server response:", envelope.Ack)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.ServerAddr, "server", cfg.ServerAddr, "envelope server address")
	f.StringVar(&cfg.APIURL, "api", cfg.APIURL, "server API base URL to fetch the server key from")
	f.StringVar(&cfg.ClientRecipient, "recipient", cfg.ClientRecipient, "recipient name")
	f.StringVar(&name, "name", "", "your name")
	f.StringVarP(&message, "message", "m", "", "message to send without the interactive form")
	f.StringVar(&wsURL, "ws", "", "send through the WebSocket endpoint, e.g. ws://127.0.0.1:9090/ws")
	return cmd
}

func resolveServerKey(ctx context.Context) (model.PublicKey, error) {
	if cfg.APIURL != "" {
		pk, err := client.FetchServerKey(ctx, cfg.APIURL)
		if err != nil {
			return pk, fmt.Errorf("fetch server key: %w", err)
		}
		return pk, nil
	}

	pk, path, err := keyfile.FindPublicKey(cfg.KeyDir)
	if err != nil {
		return pk, fmt.Errorf("server public key: %w", err)
	}
	log.Debug("server public key loaded", zap.String("path", path))
	return pk, nil
}
