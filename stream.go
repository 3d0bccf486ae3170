package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/tdstream-go/internal/stream"
)

// streamFlags holds the options of the stream command.
type streamFlags struct {
	service   string
	fields    string
	qos       string
	maxFrames int
	dataOnly  bool
}

// serviceEntry is a command-line service name's streamer service and default
// field list. Account activity takes no fields.
type serviceEntry struct {
	service       stream.Service
	defaultFields []stream.Field
}

var streamServices = map[string]serviceEntry{
	"quote":            {stream.ServiceQuote, []stream.Field{stream.Enum(stream.QuoteAll)}},
	"option":           {stream.ServiceOption, []stream.Field{stream.Enum(stream.OptionAll)}},
	"futures":          {stream.ServiceLevelOneFutures, []stream.Field{stream.Enum(stream.FuturesAll)}},
	"futures-options":  {stream.ServiceLevelOneFuturesOptions, []stream.Field{stream.Enum(stream.FuturesOptionsAll)}},
	"forex":            {stream.ServiceLevelOneForex, []stream.Field{stream.Enum(stream.ForexAll)}},
	"news":             {stream.ServiceNewsHeadline, []stream.Field{stream.Enum(stream.NewsAll)}},
	"chart-equity":     {stream.ServiceChartEquity, []stream.Field{stream.Enum(stream.ChartEquityAll)}},
	"chart-futures":    {stream.ServiceChartFutures, []stream.Field{stream.Enum(stream.ChartFuturesAll)}},
	"chart-options":    {stream.ServiceChartOptions, []stream.Field{stream.Enum(stream.ChartFuturesAll)}},
	"timesale-equity":  {stream.ServiceTimesaleEquity, []stream.Field{stream.Enum(stream.TimesaleAll)}},
	"timesale-forex":   {stream.ServiceTimesaleForex, []stream.Field{stream.Enum(stream.TimesaleAll)}},
	"timesale-futures": {stream.ServiceTimesaleFutures, []stream.Field{stream.Enum(stream.TimesaleAll)}},
	"timesale-options": {stream.ServiceTimesaleOptions, []stream.Field{stream.Enum(stream.TimesaleAll)}},
	"account-activity": {stream.ServiceAccountActivity, nil},
}

func newStreamCmd() *cobra.Command {
	var flags streamFlags

	cmd := &cobra.Command{
		Use:   "stream [SYMBOL...]",
		Short: "Subscribe to a streamer service and print frames",
		Long: `Log in to the streamer, send the subscription, and print every inbound frame
as one JSON line on stdout until interrupted.

Services: quote, option, futures, futures-options, forex, news, chart-equity,
chart-futures, chart-options, timesale-equity, timesale-forex,
timesale-futures, timesale-options, account-activity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream(cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.service, "service", "quote", "streamer service")
	cmd.Flags().StringVar(&flags.fields, "fields", "", "comma-separated field ids (default: every field of the service)")
	cmd.Flags().StringVar(&flags.qos, "qos", "", "quality of service level 0 (fastest) to 5")
	cmd.Flags().IntVar(&flags.maxFrames, "max-frames", 0, "stop after this many printed frames (0 = no limit)")
	cmd.Flags().BoolVar(&flags.dataOnly, "data-only", false, "print only frames that carry data")

	return cmd
}

// subscriptionRequests turns the command line into the requests queued
// before the first Start: an optional QOS request, then the subscription.
func subscriptionRequests(b *stream.Builder, flags streamFlags, symbols []string) ([]stream.Request, error) {
	entry, ok := streamServices[flags.service]
	if !ok {
		return nil, fmt.Errorf("unknown service %q", flags.service)
	}

	fields := entry.defaultFields
	if flags.fields != "" {
		fields = []stream.Field{stream.Raw(flags.fields)}
	}

	if entry.service != stream.ServiceAccountActivity && len(symbols) == 0 {
		return nil, fmt.Errorf("service %s needs at least one symbol", flags.service)
	}

	var reqs []stream.Request

	if flags.qos != "" {
		level, err := parseQOS(flags.qos)
		if err != nil {
			return nil, err
		}

		reqs = append(reqs, b.QualityOfService(level))
	}

	req, err := serviceRequest(b, entry.service, symbols, fields)
	if err != nil {
		return nil, err
	}

	return append(reqs, req), nil
}

func serviceRequest(b *stream.Builder, svc stream.Service, symbols []string, fields []stream.Field) (stream.Request, error) {
	switch svc {
	case stream.ServiceQuote:
		return b.LevelOneQuotes(symbols, fields...), nil
	case stream.ServiceOption:
		return b.LevelOneOptions(symbols, fields...), nil
	case stream.ServiceLevelOneFutures:
		return b.LevelOneFutures(symbols, fields...), nil
	case stream.ServiceLevelOneFuturesOptions:
		return b.LevelOneFuturesOptions(symbols, fields...), nil
	case stream.ServiceLevelOneForex:
		return b.LevelOneForex(symbols, fields...), nil
	case stream.ServiceNewsHeadline:
		return b.NewsHeadline(symbols, fields...), nil
	case stream.ServiceChartEquity, stream.ServiceChartFutures, stream.ServiceChartOptions:
		return b.Chart(svc, symbols, fields...)
	case stream.ServiceAccountActivity:
		return b.AccountActivity()
	default:
		return b.Timesale(svc, symbols, fields...)
	}
}

func parseQOS(s string) (stream.QOSLevel, error) {
	switch level := stream.QOSLevel(strings.TrimSpace(s)); level {
	case stream.QOSExpress, stream.QOSRealTime, stream.QOSFast,
		stream.QOSModerate, stream.QOSSlow, stream.QOSDelayed:
		return level, nil
	default:
		return "", fmt.Errorf("invalid --qos %q: must be 0 through 5", s)
	}
}

func runStream(cmd *cobra.Command, args []string, flags streamFlags) error {
	logger := buildLogger()

	ctx, cancel := context.WithCancel(shutdownContext(cmd.Context(), logger))
	defer cancel()

	sess, err := openSession(ctx, resolvedCfg, nil, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	pipe, err := stream.NewPipeline(ctx, sess.client, stream.Options{
		URL:          resolvedCfg.StreamURL,
		LoginTimeout: resolvedCfg.LoginTimeout,
		FrameTimeout: resolvedCfg.FrameTimeout,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	reqs, err := subscriptionRequests(pipe.Builder(), flags, args)
	if err != nil {
		return err
	}

	if err := pipe.Build(ctx); err != nil {
		return err
	}

	pipe.Subscribe(reqs...)

	logger.Info("streaming",
		slog.String("service", flags.service),
		slog.Int("symbols", len(args)),
	)

	g, gctx := errgroup.WithContext(ctx)

	// Token files written by a concurrent login are adopted immediately.
	g.Go(func() error {
		return sess.store.Watch(gctx)
	})

	// Closing the pipeline is what unblocks a Start waiting for a frame.
	g.Go(func() error {
		<-gctx.Done()

		return pipe.Close(context.WithoutCancel(gctx))
	})

	g.Go(func() error {
		defer cancel()

		return printFrames(gctx, pipe, cmd.OutOrStdout(), flags)
	})

	return g.Wait()
}

// frameSource is the part of *stream.Pipeline that printFrames drives.
type frameSource interface {
	Start(ctx context.Context) (stream.Frame, error)
}

// printFrames writes one JSON line per frame until the context ends, the
// pipeline is closed, or maxFrames frames have been printed.
func printFrames(ctx context.Context, src frameSource, w io.Writer, flags streamFlags) error {
	printed := 0

	for flags.maxFrames == 0 || printed < flags.maxFrames {
		frame, err := src.Start(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			var stateErr *stream.StateError
			if errors.As(err, &stateErr) && stateErr.State == stream.Closed {
				return nil
			}

			return err
		}

		if flags.dataOnly && !frame.HasData() {
			continue
		}

		if _, err := fmt.Fprintf(w, "%s\n", frame.Raw); err != nil {
			return fmt.Errorf("writing frame: %w", err)
		}

		printed++
	}

	return nil
}
