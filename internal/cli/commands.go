package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"GapSentinel/internal/calendar"
	"GapSentinel/internal/model"
	"GapSentinel/internal/notifier"
	"GapSentinel/internal/runner"
	"GapSentinel/internal/scheduler"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		symbols []string
		dates   []string
		xlsx    string
		noStore bool
		notify  bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute metrics for the given requests or the configured watchlist",
		Long: `Compute metrics for each --symbol/--date pair. A single --date applies to every
symbol. Without flags the dated entries of the configured watchlist are used.
Example: gapsentinel run --symbol QMCO --date 2025-02-12 --symbol BSLK --date 2025-02-11`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := buildRequests(symbols, dates)
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				if reqs, err = a.cfg.Requests(); err != nil {
					return err
				}
			}
			if len(reqs) == 0 {
				return fmt.Errorf("no requests: pass --symbol and --date or add dated watchlist entries")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			report, err := a.runBatch(ctx, reqs, noStore)
			if err != nil {
				return err
			}

			results := report.Results()
			if err := notifier.PrintResults(cmd.OutOrStdout(), results, !a.noColor && isTerminal(cmd)); err != nil {
				return err
			}
			if xlsx != "" {
				if err := notifier.ExportXLSX(xlsx, results); err != nil {
					return err
				}
				log.Info().Str("path", xlsx).Int("rows", len(results)).Msg("xlsx written")
			}
			if notify && a.cfg.TelegramEnabled() {
				tn := notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy)
				if err := tn.SendWithRetry(ctx, notifier.FormatRunSummary(report.RunID, results, report.Failures), 3); err != nil {
					log.Error().Err(err).Msg("send run summary")
				}
			}
			if report.Failures > 0 {
				return fmt.Errorf("%d of %d request(s) failed", report.Failures, len(reqs))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&symbols, "symbol", nil, "ticker symbol (repeatable)")
	cmd.Flags().StringArrayVar(&dates, "date", nil, "target date YYYY-MM-DD (repeatable, paired with --symbol)")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "also write the results to this .xlsx file")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not write results to the database")
	cmd.Flags().BoolVar(&notify, "notify", false, "send a Telegram summary when telegram is configured")
	return cmd
}

// buildRequests pairs symbols with dates. One date is shared by every symbol.
func buildRequests(symbols, dates []string) ([]model.MetricsRequest, error) {
	if len(symbols) == 0 && len(dates) == 0 {
		return nil, nil
	}
	if len(dates) != 1 && len(dates) != len(symbols) {
		return nil, fmt.Errorf("got %d --symbol and %d --date flags", len(symbols), len(dates))
	}
	reqs := make([]model.MetricsRequest, 0, len(symbols))
	for i, sym := range symbols {
		d := dates[0]
		if len(dates) > 1 {
			d = dates[i]
		}
		req, err := model.NewMetricsRequest(sym, d)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func (a *app) runBatch(ctx context.Context, reqs []model.MetricsRequest, noStore bool) (*runner.Report, error) {
	cal, err := a.calendar()
	if err != nil {
		return nil, err
	}
	src, closeSrc, err := a.source()
	if err != nil {
		return nil, err
	}
	defer closeSrc()

	rec, err := a.recorder(ctx, noStore)
	if err != nil {
		return nil, err
	}
	defer rec.Close()

	r := runner.New(a.analyzer(src, cal), rec, src.Name(), a.cfg.Runner.Parallelism)
	return r.Run(ctx, reqs)
}

func newScheduleCmd(a *app) *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the daily watchlist batch on the configured cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cal, err := a.calendar()
			if err != nil {
				return err
			}
			src, closeSrc, err := a.source()
			if err != nil {
				return err
			}
			defer closeSrc()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			rec, err := a.recorder(ctx, false)
			if err != nil {
				return err
			}
			defer rec.Close()

			var sender scheduler.Sender
			if a.cfg.TelegramEnabled() {
				sender = notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy)
			}

			r := runner.New(a.analyzer(src, cal), rec, src.Name(), a.cfg.Runner.Parallelism)
			sched := scheduler.NewScheduler(ctx, r, cal, a.cfg.Symbols(), a.cfg.Location(), sender, a.cfg.Schedule.StateFile)
			if err := sched.Register(a.cfg.Schedule.DailyCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if runOnStart || os.Getenv("RUN_ON_START") == "true" {
				log.Info().Msg("run on start enabled, executing daily task now")
				go sched.RunNow()
			}

			log.Info().Str("cron", a.cfg.Schedule.DailyCron).Msg("GapSentinel is running. Press Ctrl+C to stop.")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigCh:
				log.Info().Msg("shutdown signal received, stopping...")
			case <-ctx.Done():
			}
			cancel()
			return nil
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "execute the daily task immediately")
	return cmd
}

func newCalendarCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "calendar DATE",
		Short: "Print the previous and next trading day around DATE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := model.ParseDate(args[0])
			if err != nil {
				return err
			}
			cal, err := a.calendar()
			if err != nil {
				return err
			}
			days := calendar.LocateTradingDays(cal, target)
			status := "open"
			if !cal.IsTradingDay(target) {
				status = "closed"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Previous: %s\n", days.Previous.Format(model.DateLayout))
			fmt.Fprintf(out, "Target: %s (%s)\n", days.Target.Format(model.DateLayout), status)
			fmt.Fprintf(out, "Next: %s\n", days.Next.Format(model.DateLayout))
			return nil
		},
	}
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gapsentinel %s\n", version)
		},
	}
}

// isTerminal reports whether the command writes to an interactive terminal.
func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
