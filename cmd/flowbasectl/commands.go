package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/flowbase/internal/app/store/audit"
	"github.com/dalemusser/flowbase/internal/app/store/emailverify"
	invitationstore "github.com/dalemusser/flowbase/internal/app/store/invitations"
	userstore "github.com/dalemusser/flowbase/internal/app/store/users"
	workspacestore "github.com/dalemusser/flowbase/internal/app/store/workspaces"
	"github.com/dalemusser/flowbase/internal/app/system/indexes"
	"github.com/dalemusser/flowbase/internal/app/system/timeouts"
	"github.com/dalemusser/flowbase/internal/app/system/workers"
	"github.com/spf13/cobra"
)

func indexesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create or update every collection's indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, closeDB, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			if err := indexes.EnsureAll(cmd.Context(), db); err != nil {
				return fmt.Errorf("ensure indexes: %w", err)
			}
			for _, c := range indexes.Collections(db) {
				cmd.Printf("ok  %s\n", c.Name)
			}
			return nil
		},
	}
}

func purgeExpiredCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-expired",
		Short: "Delete expired invitations and verification records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, closeDB, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			w := workers.NewExpiredCleanup(map[string]workers.Purger{
				"workspace_invitations": invitationstore.New(db),
				"verifications":         emailverify.New(db),
			}, g.logger(), time.Minute)
			n := w.RunOnce(cmd.Context())
			cmd.Printf("purged %d expired records\n", n)
			return nil
		},
	}
}

func verifyUserCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-user <email>",
		Short: "Mark a user's email address as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			ctx, cancel := timeouts.WithTimeout(cmd.Context(), timeouts.Short(), g.logger(), "verify-user")
			defer cancel()

			users := userstore.New(db)
			email := strings.TrimSpace(args[0])
			u, err := users.GetByEmail(ctx, email)
			if errors.Is(err, userstore.ErrNotFound) {
				return fmt.Errorf("no user with email %s", email)
			}
			if err != nil {
				return err
			}
			if u.IsEmailVerified {
				cmd.Printf("%s is already verified\n", u.Email)
				return nil
			}
			if err := users.MarkVerified(ctx, u.ID); err != nil {
				return err
			}
			cmd.Printf("verified %s\n", u.Email)
			return nil
		},
	}
}

func workspaceOwnersCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "workspace-owners",
		Short: "Report workspaces without exactly one owner entry matching the owner field",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, closeDB, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			bad, err := workspacestore.New(db).FindInconsistentOwnership(cmd.Context())
			if err != nil {
				return err
			}
			if len(bad) == 0 {
				cmd.Println("all workspaces have a consistent owner")
				return nil
			}
			for _, ws := range bad {
				cmd.Printf("%s  %q  owner=%s  owner_entries=%d\n", ws.ID.Hex(), ws.Name, ws.Owner.Hex(), ws.OwnerCount())
			}
			return fmt.Errorf("%d workspaces with inconsistent ownership", len(bad))
		},
	}
}

func failedLoginsCmd(g *globals) *cobra.Command {
	var (
		since time.Duration
		limit int64
	)
	cmd := &cobra.Command{
		Use:   "failed-logins",
		Short: "List recent failed login attempts from the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, closeDB, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			events, err := audit.New(db).GetFailedLogins(cmd.Context(), time.Now().UTC().Add(-since), limit)
			if err != nil {
				return err
			}
			for _, e := range events {
				user := "-"
				if e.UserID != nil {
					user = e.UserID.Hex()
				}
				cmd.Printf("%s  %-30s  ip=%s  user=%s  %s\n",
					e.Timestamp.Format(time.RFC3339), e.EventType, e.IP, user, e.Details["attempted_email"])
			}
			cmd.Printf("%d failed logins in the last %s\n", len(events), since)
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "How far back to look")
	cmd.Flags().Int64Var(&limit, "limit", 50, "Maximum events to list (0 for all)")
	return cmd
}
