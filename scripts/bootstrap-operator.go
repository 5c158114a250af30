package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/letterbox/letterbox/internal/config"
	"github.com/letterbox/letterbox/internal/repository"
	"github.com/letterbox/letterbox/internal/secret"
	"github.com/letterbox/letterbox/internal/service"
)

type output struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type options struct {
	databaseURL string
	hashSecret  string
	username    string
	password    string
	migrate     bool
	format      string
}

func main() {
	opts := options{hashSecret: os.Getenv("HASH_SECRET")}
	flag.StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&opts.username, "username", "admin", "Operator username")
	flag.StringVar(&opts.password, "password", os.Getenv("OPERATOR_PASSWORD"), "Operator password (defaults to OPERATOR_PASSWORD)")
	flag.BoolVar(&opts.migrate, "migrate", false, "Apply pending migrations first")
	flag.StringVar(&opts.format, "format", "plain", "Output format: plain or json")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := run(ctx, opts, os.Stdout)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// checkOptions rejects settings the API server itself would refuse, so an
// operator is never stored under a key the server cannot start with.
func checkOptions(opts options) error {
	if opts.databaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if len(opts.hashSecret) < config.MinHashSecretLen {
		return fmt.Errorf("%w: HASH_SECRET needs at least %d bytes", config.ErrWeakHashSecret, config.MinHashSecretLen)
	}
	switch strings.ToLower(opts.format) {
	case "plain", "json":
	default:
		return errors.New("invalid format; use plain or json")
	}
	return nil
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	if err := checkOptions(opts); err != nil {
		return err
	}

	if opts.migrate {
		if err := repository.Migrate(ctx, opts.databaseURL); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	repo, err := repository.New(ctx, opts.databaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer repo.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	operators := service.NewOperatorService(repo, nil, secret.New(opts.hashSecret), logger)

	user, err := operators.Provision(ctx, opts.username, secret.New(opts.password))
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			return fmt.Errorf("invalid operator: %s", verr.Error())
		case errors.Is(err, service.ErrUsernameTaken):
			return fmt.Errorf("username %q is already provisioned", opts.username)
		default:
			return fmt.Errorf("provision operator: %w", err)
		}
	}

	return writeOutput(stdout, opts.format, output{UserID: user.ID, Username: user.Username})
}

func writeOutput(w io.Writer, format string, out output) error {
	if strings.ToLower(format) == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	_, err := fmt.Fprintln(w, out.UserID)
	return err
}
