// Package cli implements drawctl, the operator command line for running
// sweeps and single draws outside the HTTP service.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dalemusser/giftbubble/internal/app/system/draws"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	Format        string // "json" | "text"
	Verbose       bool
	Timeout       time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Backend is what the commands drive. The production backend is the same
// service graph the HTTP server uses.
type Backend interface {
	Sweep(ctx context.Context) (draws.SweepResult, error)
	Draw(ctx context.Context, groupID primitive.ObjectID) (draws.Result, error)
	Reset(ctx context.Context, groupID primitive.ObjectID) (int64, error)
	Close(ctx context.Context) error
}

// Opener builds a Backend from the global flags.
type Opener func(ctx context.Context, opts *RootOptions, logger *zap.Logger) (Backend, error)

// NewRootCommand creates the drawctl root command backed by MongoDB.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(openMongo)
}

// NewRootCommandWith creates the root command with a custom backend.
func NewRootCommandWith(open Opener) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "drawctl",
		Short: "Run GiftBubble draws from the command line",
		Long: `drawctl runs the scheduled-draw sweep or a single group's draw against the
GiftBubble database. Settings default to the GIFTBUBBLE_* environment
variables used by the server.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.MongoURI, "mongo-uri", envOr("GIFTBUBBLE_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	cmd.PersistentFlags().StringVar(&opts.MongoDatabase, "mongo-database", envOr("GIFTBUBBLE_MONGO_DATABASE", "giftbubble"), "MongoDB database name")
	cmd.PersistentFlags().StringVar(&opts.RedisAddr, "redis-addr", envOr("GIFTBUBBLE_REDIS_ADDR", ""), "Redis address for email notifications (blank disables email)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 2*time.Minute, "overall deadline")

	cmd.AddCommand(newSweepCommand(opts, open))
	cmd.AddCommand(newDrawCommand(opts, open))
	cmd.AddCommand(newResetCommand(opts, open))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// withBackend opens the backend, runs fn and closes it.
func withBackend(cmd *cobra.Command, opts *RootOptions, open Opener, fn func(ctx context.Context, b Backend) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()

	logger := newLogger(opts.Verbose)
	defer func() { _ = logger.Sync() }()

	b, err := open(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close(context.Background()) }()
	return fn(ctx, b)
}

func parseGroupID(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid group id %q", s)
	}
	return id, nil
}
