package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sevaflow/internal/escalation"
	"sevaflow/internal/httpx"
	slackbot "sevaflow/internal/integrations/slack"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Slack bot, the SLA escalation sweep and the metrics endpoint",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := escalation.NewSweeper(rt.store, rt.svc).OnSweep(rt.metrics.Escalated)

	g, gctx := errgroup.WithContext(ctx)

	if rt.cfg.SlackConfigured() {
		api := slack.New(
			rt.cfg.SlackBotToken,
			slack.OptionAppLevelToken(rt.cfg.SlackAppToken),
			slack.OptionHTTPClient(httpx.ExternalHTTPClient()),
		)
		rt.cfg.ManagerSlackIDs = resolveManagers(api, rt.cfg.ManagerSlackIDs)
		bot := slackbot.New(rt.cfg, api, rt.svc)
		sweeper.WithNotifier(bot.Notifier())

		log.Println("Starting SevaFlow Slack bot...")
		g.Go(func() error {
			if err := bot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("slack bot: %w", err)
			}
			return nil
		})
	} else {
		log.Println("Slack tokens not set; running without the bot")
	}

	if err := sweeper.Start(gctx, rt.cfg.EscalationSchedule, rt.cfg.Location); err != nil {
		return err
	}

	if rt.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", rt.metrics.Handler())
		srv := &http.Server{Addr: rt.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		g.Go(func() error {
			log.Printf("Metrics listening on %s/metrics", rt.cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err = g.Wait()
	log.Println("SevaFlow stopped")
	return err
}

// resolveManagers lets config name managers by Slack handle or real name.
func resolveManagers(api *slack.Client, identifiers []string) []string {
	if len(identifiers) == 0 {
		return nil
	}
	ids, unresolved, err := slackbot.ResolveUserIDs(api, identifiers)
	if err != nil {
		log.Printf("manager resolve error: %v", err)
	}
	if len(unresolved) > 0 {
		log.Printf("WARNING: could not resolve managers: %v", unresolved)
	}
	return ids
}
