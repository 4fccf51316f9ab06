// Command flowbasectl runs maintenance tasks against a Flowbase database.
package main

import (
	"context"
	"os"

	"github.com/dalemusser/flowbase/internal/app/bootstrap"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type globals struct {
	mongoURI      string
	mongoDatabase string
	verbose       bool
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:          "flowbasectl",
		Short:        "Maintenance commands for a Flowbase database",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.mongoURI, "mongo-uri", envOr("FLOWBASE_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	root.PersistentFlags().StringVar(&g.mongoDatabase, "mongo-database", envOr("FLOWBASE_MONGO_DATABASE", "flowbase"), "MongoDB database name")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log progress to stderr")

	root.AddCommand(
		indexesCmd(g),
		purgeExpiredCmd(g),
		verifyUserCmd(g),
		workspaceOwnersCmd(g),
		failedLoginsCmd(g),
	)
	return root
}

// open connects and returns the database with a func that disconnects.
func (g *globals) open(ctx context.Context) (*mongo.Database, func(), error) {
	client, err := bootstrap.Dial(ctx, g.mongoURI, 0, 0)
	if err != nil {
		return nil, nil, err
	}
	return client.Database(g.mongoDatabase), func() { _ = client.Disconnect(context.Background()) }, nil
}

func (g *globals) logger() *zap.Logger {
	if !g.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
