/*
Package main is a command line chat client built on the chatsdk client.

It loads configuration from the environment, initializes the global logging system,
builds the credential store and the optional attachment uploader, connects the configured
user and logs every event received until an operating system interrupt signal
(SIGINT, SIGTERM) asks it to disconnect.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chatsdk/internal/app/db"
	"chatsdk/internal/app/storage"
	"chatsdk/internal/configs"
	"chatsdk/internal/pkg/logx"
	"chatsdk/pkg/call"
	"chatsdk/pkg/chat"
	"chatsdk/pkg/credentials"
	"chatsdk/pkg/events"
	"chatsdk/pkg/models"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("base_url", cfg.BaseURL).
		Str("ws_url", cfg.WSURL).
		Str("credentials_backend", cfg.CredentialsBackend).
		Bool("storage", cfg.HasStorage()).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cfg.Options()

	store, closeStore, err := credentialStore(ctx, cfg)
	if err != nil {
		logx.Fatal(err, "Failed to open the credential store")
	}
	defer closeStore()
	opts = append(opts, chat.WithCredentialStore(store))

	if cfg.HasStorage() {
		uploader, err := storage.NewFileUploader(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize the attachment storage")
		}
		opts = append(opts, chat.WithUploader(uploader))
	}

	client, err := chat.New(cfg.APIKey, opts...)
	if err != nil {
		logx.Fatal(err, "Failed to create the chat client")
	}
	defer client.Close()

	sub := client.Subscribe(func(event events.ChatEvent) {
		logx.Info("Event received", "type", event.Type(), "created_at", event.CreatedAt())
	})
	defer sub.Dispose()

	data, err := connect(client, cfg).Await(ctx).Get()
	if err != nil {
		logx.Fatal(err, "Failed to connect")
	}
	logx.Info("Connected", "user_id", data.User.ID, "connection_id", data.ConnectionID)

	<-ctx.Done()
	logx.Info("Received shutdown signal. Disconnecting...")

	// Credentials stay persisted so the next run can reuse them.
	if err := client.Disconnect(false).Execute().Err(); err != nil {
		logx.Error(err, "Disconnect failed")
	}

	logx.Info("Client stopped.")
}

// connect picks the connection flavor from the configured session settings.
func connect(client *chat.Client, cfg *configs.AppConfig) call.Call[chat.ConnectionData] {
	switch {
	case cfg.UserID == "":
		return client.ConnectAnonymousUser(cfg.ConnectTimeout)
	case cfg.UserToken == "":
		return client.ConnectGuestUser(cfg.UserID, cfg.UserName, cfg.ConnectTimeout)
	default:
		user := &models.User{ID: cfg.UserID, Name: cfg.UserName}
		return client.ConnectUser(user, cfg.UserToken, cfg.ConnectTimeout)
	}
}

func credentialStore(ctx context.Context, cfg *configs.AppConfig) (credentials.Store, func(), error) {
	switch cfg.CredentialsBackend {
	case configs.CredentialsFile:
		return credentials.NewFileStore(cfg.CredentialsPath), func() {}, nil
	case configs.CredentialsPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN, db.PoolConfig{})
		if err != nil {
			return nil, nil, err
		}
		return credentials.NewPostgresStore(pool, cfg.APIKey), pool.Close, nil
	default:
		return credentials.NewMemoryStore(), func() {}, nil
	}
}
