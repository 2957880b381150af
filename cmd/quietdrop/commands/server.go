package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quietdrop/internal/model"
	"quietdrop/internal/repository/account"
	"quietdrop/internal/repository/keyfile"
	"quietdrop/internal/service/credential"
	"quietdrop/internal/service/gate"
	redisSvc "quietdrop/internal/service/redis"
	"quietdrop/internal/service/server"
	"quietdrop/internal/utils/log"
)

func serverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Receive and decrypt envelopes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "envelope listen address")
	f.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP/WebSocket API listen address (disabled when empty)")
	f.IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "connections admitted per address per window, minus one")
	f.DurationVar(&cfg.RateWindow, "rate-window", cfg.RateWindow, "rate limit window")
	f.Int64Var(&cfg.MaxConns, "max-conns", cfg.MaxConns, "connections handled concurrently")
	f.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for a shared rate limiter")
	f.StringVar(&cfg.MongoURI, "mongo", cfg.MongoURI, "MongoDB URI for account storage")
	f.StringVar(&cfg.SaltFile, "salt-file", cfg.SaltFile, "file the latest registered salt is written to")
	return cmd
}

func runServer(ctx context.Context) error {
	keys, created, err := keyfile.LoadOrCreate(cfg.KeyDir)
	if err != nil {
		return fmt.Errorf("server keys: %w", err)
	}
	log.Info("server keys ready",
		zap.String("dir", cfg.KeyDir), zap.Bool("created", created), zap.Stringer("public_key", keys.PublicKey))

	g, closeGate, err := newGate(ctx)
	if err != nil {
		return err
	}
	defer closeGate()

	srv := server.NewServer(keys.SecretKey, g, printMessage, server.Options{
		IOTimeout: cfg.IOTimeout,
		MaxConns:  cfg.MaxConns,
	})

	var api *server.API
	if cfg.HTTPAddr != "" {
		accounts, closeStore, err := newAccountStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		creds, err := credential.New(accounts, credential.WithSaltFile(cfg.SaltFile))
		if err != nil {
			return err
		}
		api = server.NewAPI(srv, keys.PublicKey, creds)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.ListenAddr)
	})
	if api != nil {
		eg.Go(func() error {
			return api.ListenAndServe(ctx, cfg.HTTPAddr)
		})
	}

	fmt.Println("\n>>> Now listening for incoming messages...")
	return eg.Wait()
}

func newGate(ctx context.Context) (gate.Gate, func(), error) {
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		r := redisSvc.NewRedis(rdb)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := r.Ping(pingCtx); err != nil {
			_ = r.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		log.Info("using redis rate limiter", zap.String("addr", cfg.RedisAddr))
		return gate.NewRedisGate(r, cfg.RateWindow, cfg.RateLimit), func() { _ = r.Close() }, nil
	}

	mg := gate.NewMemoryGate(cfg.RateWindow, cfg.RateLimit, gate.WithMaxEntries(cfg.GateMaxEntries))
	go mg.Run(ctx, cfg.GateSweep)
	return mg, func() {}, nil
}

func newAccountStore(ctx context.Context) (account.Store, func(), error) {
	if cfg.MongoURI == "" {
		log.Warn("no mongo configured, accounts are kept in memory")
		return account.NewMemoryRepo(), func() {}, nil
	}

	client, err := initMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo: %w", err)
	}
	closeFn := func() { _ = client.Disconnect(context.Background()) }

	repo := account.NewAccountRepo(client.Database(cfg.MongoDB))
	if err := repo.EnsureIndexes(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return repo, closeFn, nil
}

func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func printMessage(env *model.Envelope, plaintext string) {
	fmt.Printf("## Decrypted message:\nsender: %s\nrecipient: %s\ncontent: %s\ntimestamp: %s\n\n",
		env.Sender, env.Recipient, plaintext, env.Timestamp.Format(time.RFC3339))
}
