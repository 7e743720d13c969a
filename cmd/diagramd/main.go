// Command diagramd serves diagrams and reconnection commands over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meikuraledutech/diagram"
	"github.com/meikuraledutech/diagram/memory"
	"github.com/meikuraledutech/diagram/metrics"
	"github.com/meikuraledutech/diagram/postgres"
	"github.com/meikuraledutech/diagram/rule"
	"github.com/meikuraledutech/diagram/rule/hclrules"
	"github.com/meikuraledutech/diagram/server"
)

type options struct {
	dbURL        string
	rules        []string
	listen       string
	dev          bool
	createSchema bool
	historyLimit int
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "diagramd",
		Short:         "Diagram command server",
		Long:          "Serve diagrams over HTTP and apply rule-checked reconnection commands.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.dbURL, "database-url", os.Getenv("DATABASE_URL"), "postgres connection string; empty keeps diagrams in memory")
	f.StringSliceVar(&opts.rules, "rules", splitList(os.Getenv("DIAGRAM_RULES")), "HCL rule files or directories")
	f.StringVar(&opts.listen, "listen", envOr("DIAGRAM_LISTEN", ":3000"), "address to listen on")
	f.BoolVar(&opts.dev, "dev", false, "human readable debug logging")
	cmd.Flags().BoolVar(&opts.createSchema, "create-schema", false, "create tables before serving")
	cmd.Flags().IntVar(&opts.historyLimit, "history-limit", 100, "undo depth per diagram, 0 for unlimited")

	cmd.AddCommand(checkCmd(opts))
	return cmd
}

func checkCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Parse rule files and list the rule-sets they define",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(opts.dev)
			if err != nil {
				return err
			}
			defer log.Sync()

			sets, err := loadRules(log, opts.rules)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(sets))
			for name := range sets {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d rules\n", name, len(sets[name].Rules))
			}
			return nil
		},
	}
}

func serve(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := newLogger(opts.dev)
	if err != nil {
		return err
	}
	defer log.Sync()

	sets, err := loadRules(log, opts.rules)
	if err != nil {
		return err
	}

	var store diagram.Store
	if opts.dbURL == "" {
		log.Warn("DATABASE_URL is not set, diagrams are kept in memory")
		store = memory.New()
	} else {
		pool, err := pgxpool.New(ctx, opts.dbURL)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
	}
	if opts.createSchema {
		if err := store.CreateSchema(ctx); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := server.New(server.Config{
		Store:        store,
		RuleSets:     sets,
		Rules:        rule.NewManager(log.Named("rules")),
		Logger:       log,
		Metrics:      metrics.New(reg),
		Gatherer:     reg,
		HistoryLimit: opts.historyLimit,
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.Listen(opts.listen) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		return srv.Shutdown()
	}
}

func loadRules(log *zap.Logger, paths []string) (map[string]*rule.Set, error) {
	if len(paths) == 0 {
		log.Warn("no rule files given, every command is allowed")
		return map[string]*rule.Set{}, nil
	}
	return hclrules.NewLoader(log.Named("hclrules")).Load(paths...)
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
