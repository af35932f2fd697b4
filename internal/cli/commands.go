package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"franchise_crm/internal/auth"
	"franchise_crm/internal/auth/transport"
	"franchise_crm/internal/authz"
	"franchise_crm/internal/bootstrap"
	"franchise_crm/internal/kpi"
	"franchise_crm/internal/scheduler"
	"franchise_crm/platform/apperr"
	"franchise_crm/platform/db"
	"franchise_crm/platform/httpkit"
	"franchise_crm/platform/validator"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewMigrateCommand applies the embedded migrations.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, closeEnv, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer closeEnv()

			if status {
				return db.MigrationStatus(ctx, e.pool)
			}
			if err := db.Migrate(ctx, e.pool); err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), opts, map[string]bool{"ok": true}, func(w io.Writer) {
				fmt.Fprintln(w, "migrations applied")
			})
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "print migration status instead of applying")
	return cmd
}

// NewSyncCommand runs one reconciliation cycle against the partner.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull new partner records once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, closeEnv, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer closeEnv()

			bg, err := bootstrap.NewBackground(e.cfg, e.pool, nil, e.log)
			if err != nil {
				return err
			}
			defer bg.Close()
			if bg.Reconcile == nil {
				return errors.New("reconciliation is disabled (SYNC_SOURCE_MODE=off)")
			}

			run := bg.Reconcile.Syncer().RunOnce
			if full {
				run = bg.Reconcile.Syncer().RunFull
			}
			result, err := run(ctx)
			bg.Bus.Wait()
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), opts, result, func(w io.Writer) {
				fmt.Fprintf(w, "source=%s cursor=%d fetched=%d inserted=%d skipped=%d failed=%d\n",
					result.Source, result.Cursor, result.Fetched, result.Inserted, result.Skipped, result.Failed)
			})
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "re-read every partner record from the start")
	return cmd
}

// NewSLAScanCommand runs one escalation pass.
func NewSLAScanCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sla-scan",
		Short: "Escalate missed deadlines once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, closeEnv, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer closeEnv()

			bg, err := bootstrap.NewBackground(e.cfg, e.pool, nil, e.log)
			if err != nil {
				return err
			}
			defer bg.Close()

			result, err := bg.SLA.Scanner().Scan(ctx, time.Now())
			// Escalation mail is sent by bus subscribers; let them finish.
			bg.Bus.Wait()
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), opts, result, func(w io.Writer) {
				for _, c := range result.Clocks {
					fmt.Fprintf(w, "%-13s overdue=%d escalated=%d known=%d failed=%d\n",
						c.Clock, c.Overdue, c.Escalated, c.Known, c.Failed)
				}
			})
		},
	}
}

// NewKPISnapshotCommand rolls up one day.
func NewKPISnapshotCommand(opts *RootOptions) *cobra.Command {
	var (
		date  string
		queue bool
	)
	cmd := &cobra.Command{
		Use:   "kpi-snapshot",
		Short: "Compute the KPI snapshot of one day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := kpi.Yesterday(time.Now())
			if date != "" {
				parsed, err := kpi.ParseDay(date)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				day = parsed
			}

			ctx := cmd.Context()
			e, closeEnv, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer closeEnv()

			if queue {
				return enqueueSnapshot(cmd, opts, e, day)
			}

			bg, err := bootstrap.NewBackground(e.cfg, e.pool, nil, e.log)
			if err != nil {
				return err
			}
			defer bg.Close()

			snaps, err := bg.KPI.Service().SnapshotDaily(ctx, day)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), opts, snaps, func(w io.Writer) {
				fmt.Fprintf(w, "stored %d snapshot rows for %s\n", len(snaps), day.Format("2006-01-02"))
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to roll up (YYYY-MM-DD, default yesterday)")
	cmd.Flags().BoolVar(&queue, "queue", false, "hand the rollup to the worker instead of running it here")
	return cmd
}

func enqueueSnapshot(cmd *cobra.Command, opts *RootOptions, e *env, day time.Time) error {
	if e.cfg.GetRedisURL() == "" {
		return errors.New("--queue needs REDIS_URL")
	}
	client, err := scheduler.NewClient(e.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	date := day.Format("2006-01-02")
	if err := client.EnqueueKPISnapshot(cmd.Context(), date); err != nil {
		return err
	}
	return output(cmd.OutOrStdout(), opts, map[string]string{"queued": date}, func(w io.Writer) {
		fmt.Fprintf(w, "queued snapshot for %s\n", date)
	})
}

// NewSeedAdminCommand creates the first central admin.
func NewSeedAdminCommand(opts *RootOptions) *cobra.Command {
	var req transport.CreateUserRequest
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create a central admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, closeEnv, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer closeEnv()

			val := validator.New()
			authModule, err := auth.NewModule(e.pool, e.cfg, val, e.log)
			if err != nil {
				return err
			}

			req.Roles = []string{authz.RoleCentralAdmin}
			if err := val.Struct(req); err != nil {
				return fmt.Errorf("invalid admin: %v", validator.Details(err))
			}

			profile, err := authModule.Service().CreateUser(ctx, systemIdentity(), req)
			if apperr.Is(err, apperr.KindConflict) {
				return output(cmd.OutOrStdout(), opts, map[string]string{"status": "exists"}, func(w io.Writer) {
					fmt.Fprintf(w, "%s already exists\n", req.Email)
				})
			}
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), opts, profile, func(w io.Writer) {
				fmt.Fprintf(w, "created admin %s\n", profile.Email)
			})
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&req.FullName, "name", "", "admin full name")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// systemIdentity acts for the operator running crmctl.
func systemIdentity() httpkit.Identity {
	return httpkit.NewIdentity(uuid.Nil, []string{authz.RoleCentralAdmin}, nil)
}

