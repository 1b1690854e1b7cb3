package main

import (
	"context"
	"fmt"
	"time"

	"github.com/NomadCrew/feedback-hub-backend/internal/app"
	"github.com/NomadCrew/feedback-hub-backend/internal/events"
	"github.com/NomadCrew/feedback-hub-backend/models/feedback/service"
	"github.com/NomadCrew/feedback-hub-backend/models/feedback/validation"
	"github.com/NomadCrew/feedback-hub-backend/types"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSubmitCmd(c *cli) *cobra.Command {
	var (
		draft    types.FeedbackDraft
		category string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Validate and store one feedback entry",
		Example: `  feedbackctl submit --name Ada --email ada@example.com --rating 5 --category UI
  feedbackctl submit --name Ada --email ada@example.com --rating 2 --category Other --message "Too slow"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft.Category = types.Category(category)
			// Reject before connecting anywhere.
			if err := validation.ValidateDraft(&draft); err != nil {
				return err
			}

			ctx := cmd.Context()
			res, err := app.Open(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = res.Close() }()

			submitter := service.NewSubmissionService(res.Provider,
				service.WithWriteTimeout(c.cfg.Provider.WriteTimeout()))
			rec, err := submitter.Submit(ctx, draft)
			if err != nil {
				return err
			}

			if c.cfg.Events.Enabled {
				publisher := events.NewRedisPublisher(res.Redis, events.ConfigFrom(c.cfg.Events))
				if err := publisher.Publish(ctx, types.Event{
					ID:         uuid.NewString(),
					Type:       types.EventTypeFeedbackSubmitted,
					InstanceID: "feedbackctl-" + uuid.NewString(),
					RecordID:   rec.ID,
					Timestamp:  time.Now().UTC(),
				}); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: stored but not announced: %v\n", err)
				}
			}

			return c.printJSON(types.FeedbackSubmitted{
				Status:   "Feedback submitted successfully",
				Feedback: rec,
			})
		},
	}

	cmd.Flags().StringVar(&draft.Name, "name", "", "submitter name")
	cmd.Flags().StringVar(&draft.Email, "email", "", "submitter email")
	cmd.Flags().IntVar(&draft.Rating, "rating", 0, "rating from 1 to 5")
	cmd.Flags().StringVar(&category, "category", "", "one of UI, Performance, Feature, Other")
	cmd.Flags().StringVar(&draft.Message, "message", "", "optional free text")
	return cmd
}

func newLatestCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Print the most recent feedback entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := app.Open(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = res.Close() }()

			projection := service.NewLatestProjection(res.Provider, c.cfg.Provider.FetchTimeout())
			return c.printJSON(projection.Current(ctx))
		},
	}
}

func newWatchCmd(c *cli) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream latest-feedback states until interrupted",
		Long: `Prints every latest-feedback state as it changes. Providers that push
snapshots update on their own; the others refresh on every change feed event
when EVENTS_ENABLED is set, and every --interval when it is non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := app.Open(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = res.Close() }()

			var remote <-chan types.Event
			if c.cfg.Events.Enabled {
				publisher := events.NewRedisPublisher(res.Redis, events.ConfigFrom(c.cfg.Events))
				defer func() { _ = publisher.Shutdown(context.Background()) }()
				if remote, err = publisher.Subscribe(ctx); err != nil {
					return err
				}
			}

			projection := service.NewLatestProjection(res.Provider, c.cfg.Provider.FetchTimeout())
			states := projection.Watch(ctx, refreshes(ctx, interval, remote))
			for state := range states {
				if err := c.printJSON(state); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "poll period for providers without push (0 disables polling)")
	return cmd
}

// refreshes yields version 0 immediately and a higher version on every tick
// or remote event. Undelivered versions are replaced by newer ones.
func refreshes(ctx context.Context, interval time.Duration, remote <-chan types.Event) <-chan uint64 {
	out := make(chan uint64, 1)
	out <- 0

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		tick = ticker.C
		context.AfterFunc(ctx, ticker.Stop)
	}
	if tick == nil && remote == nil {
		return out
	}

	go func() {
		var version uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick:
			case _, ok := <-remote:
				if !ok {
					remote = nil
					continue
				}
			}
			version++
			select {
			case <-out:
			default:
			}
			out <- version
		}
	}()
	return out
}
