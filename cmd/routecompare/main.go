package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/application"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/bootstrap"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/config"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/events"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/export"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type compareOptions struct {
	from    string
	to      string
	geojson bool
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "routecompare",
		Short:         "Compare alternative driving routes between two places",
		Long:          `Resolves two addresses and fetches the fastest, via-waypoint, no-motorway and no-toll routes between them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	newLogger := func() *zap.Logger {
		if !verbose {
			return zap.NewNop()
		}
		log, err := logger.NewNamed("development", "routecompare")
		if err != nil {
			return zap.NewNop()
		}
		return log
	}

	rootCmd.AddCommand(
		newCompareCmd(newLogger),
		newVariantsCmd(),
		newEventsCmd(newLogger),
	)
	return rootCmd
}

func newCompareCmd(newLogger func() *zap.Logger) *cobra.Command {
	opts := &compareOptions{}
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare every route variant between two addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, opts, newLogger())
		},
	}
	cmd.Flags().StringVar(&opts.from, "from", "", "Start address")
	cmd.Flags().StringVar(&opts.to, "to", "", "End address")
	cmd.Flags().BoolVar(&opts.geojson, "geojson", false, "Print the result as a GeoJSON FeatureCollection")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Overall deadline for the comparison")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runCompare(cmd *cobra.Command, opts *compareOptions, log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	engine, err := bootstrap.NewEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	svc := application.NewComparisonService(engine.Resolver, engine.Fetcher, engine.Catalog, nil, nil, application.Options{
		GeocodeTimeout: cfg.Here.GeocodeTimeout,
		RouteTimeout:   cfg.Here.RouteTimeout,
	}, log)

	result, err := svc.Compare(ctx, opts.from, opts.to)
	if err != nil {
		return fmt.Errorf("%s: %w", route.Cause(err), err)
	}

	if opts.geojson {
		data, err := export.Marshal(result)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	return printComparison(cmd.OutOrStdout(), result)
}

func printComparison(out io.Writer, result *route.ComparisonResult) error {
	fmt.Fprintf(out, "%s (%s) -> %s (%s), %.1f km direct\n\n",
		result.Start.Raw, result.Start.Coordinate,
		result.End.Raw, result.End.Coordinate,
		result.DirectDistanceMeters/1000)

	fastest, _ := result.Fastest()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VARIANT\tCOLOR\tTIME\tDISTANCE\t")
	for _, r := range result.Routes {
		mark := ""
		if r.VariantKey == fastest.VariantKey {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%d min\t%d km\t%s\n", r.DisplayName, r.Color, r.DurationMinutes(), r.LengthKm(), mark)
	}
	for _, f := range result.Failures {
		fmt.Fprintf(w, "%s\t-\t-\t-\t%s\n", f.DisplayName, f.Cause())
	}
	return w.Flush()
}

func newVariantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List the configured route variants",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			catalog, err := route.DefaultCatalog(cfg.Catalog.TransportMode, cfg.Catalog.Via)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tNAME\tCOLOR")
			for _, v := range application.ToVariantDTOs(catalog) {
				fmt.Fprintf(w, "%s\t%s\t%s\n", v.Key, v.DisplayName, v.Color)
			}
			return w.Flush()
		},
	}
}

func newEventsCmd(newLogger func() *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Follow comparison events published by the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.EventsEnabled() {
				return fmt.Errorf("no kafka brokers configured: set %s_KAFKA_BROKERS", config.EnvPrefix)
			}

			out := cmd.OutOrStdout()
			consumer := events.NewComparisonEventConsumer(
				cfg.KafkaConfig.Brokers,
				cfg.KafkaConfig.GroupID,
				cfg.KafkaConfig.Topic,
				func(_ context.Context, e events.CloudEvent) error {
					_, err := fmt.Fprintf(out, "%s %s %s\n", e.Time.Format(time.RFC3339), e.Type, string(e.Data))
					return err
				},
				newLogger(),
			)
			defer func() { _ = consumer.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return consumer.Start(ctx)
		},
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
