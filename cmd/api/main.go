package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskManager/internal/app"
	"taskManager/internal/auth"
	"taskManager/internal/config"
	"taskManager/internal/models/user"
	"taskManager/internal/repository/pgpool"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "config.yml", "path to the YAML config file")
	devToken := pflag.String("dev-token", "", "print a signed bearer token for this user id and exit")
	devGroups := pflag.StringSlice("dev-groups", []string{user.GroupMembers}, "groups carried by the --dev-token token")
	devTTL := pflag.Duration("dev-ttl", 24*time.Hour, "lifetime of the --dev-token token")
	migrateDown := pflag.Bool("migrate-down", false, "roll back every postgres migration and exit")
	pflag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *devToken != "":
		token, err := auth.Issue(cfg.Auth.JWTSecret, cfg.Auth.Issuer, user.Caller{
			ID:     *devToken,
			Groups: *devGroups,
		}, *devTTL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	case *migrateDown:
		if err := pgpool.Down(cfg.Database.URL); err != nil {
			fmt.Fprintf(os.Stderr, "migrate down: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg).Init(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	loader.Watch(a.OnConfigChange)

	if err := a.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		os.Exit(1)
	}
}
