package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/config"
	"github.com/AntonStoeckl/dynamic-streams-eventpublisher-go/eventpublisher"
)

const maxLineBytes = 1 << 20

var ErrNoEventsGiven = errors.New("either --type or --file is required")

type rootOptions struct {
	configPath string
}

func newRootCommand(out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "eventpublisher",
		Short:        "Publish domain events to a message broker",
		SilenceUsage: true,
	}

	cmd.SetOut(out)
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (yaml, json or toml)")

	cmd.AddCommand(
		newPublishCommand(opts),
		newRoutesCommand(opts),
		newTypesCommand(opts),
	)

	return cmd
}

type publishOptions struct {
	eventType       string
	data            string
	occurredAt      string
	correlationID   string
	causationID     string
	file            string
	metricsTextfile string
}

func newPublishCommand(root *rootOptions) *cobra.Command {
	opts := &publishOptions{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish one event from flags or many events from a JSON lines file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}

			events, err := opts.events()
			if err != nil {
				return err
			}

			return runPublish(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, events, opts.metricsTextfile)
		},
	}

	cmd.Flags().StringVarP(&opts.eventType, "type", "t", "", "event type")
	cmd.Flags().StringVarP(&opts.data, "data", "d", "{}", "event payload as JSON")
	cmd.Flags().StringVar(&opts.occurredAt, "occurred-at", "", "RFC3339 time the event occurred, now by default")
	cmd.Flags().StringVar(&opts.correlationID, "correlation-id", "", "correlation ID")
	cmd.Flags().StringVar(&opts.causationID, "causation-id", "", "causation ID")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "JSON lines file with one {type, data, occurred_at} object per line, - for stdin")
	cmd.Flags().StringVar(&opts.metricsTextfile, "metrics-textfile", "", "write prometheus metrics to this file after publishing")
	cmd.MarkFlagsMutuallyExclusive("type", "file")

	return cmd
}

func (o *publishOptions) events() ([]RawEvent, error) {
	switch {
	case o.file != "":
		return readEventsFile(o.file)
	case o.eventType != "":
		var occurredAt time.Time

		if o.occurredAt != "" {
			parsed, err := time.Parse(time.RFC3339, o.occurredAt)
			if err != nil {
				return nil, err
			}

			occurredAt = parsed
		}

		event, err := NewRawEvent(o.eventType, []byte(o.data), occurredAt)
		if err != nil {
			return nil, err
		}

		event.CorrelationID = o.correlationID
		event.CausationID = o.causationID

		return []RawEvent{event}, nil
	default:
		return nil, ErrNoEventsGiven
	}
}

func readEventsFile(path string) ([]RawEvent, error) {
	input := io.Reader(os.Stdin)

	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()

		input = file
	}

	return readEvents(input)
}

func readEvents(input io.Reader) ([]RawEvent, error) {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	events := make([]RawEvent, 0)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		event, err := parseRawEventLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}

		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(events) == 0 {
		return nil, ErrNoEventsGiven
	}

	return events, nil
}

func runPublish(
	ctx context.Context,
	out io.Writer,
	logOutput io.Writer,
	cfg config.Config,
	events []RawEvent,
	metricsTextfile string,
) (err error) {

	obs, err := buildObservability(ctx, cfg, logOutput)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, obs.Shutdown()) }()

	conn, err := connectTransport(ctx, cfg, obs.Logger)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, conn.close()) }()

	publisher, err := buildPublisher(cfg, conn.senders, obs)
	if err != nil {
		return err
	}

	published, err := publishAll(ctx, publisher, cfg.Publisher.Timeout, events)
	_, _ = fmt.Fprintf(out, "published %d of %d events\n", published, len(events))

	if metricsTextfile != "" && obs.Registry != nil {
		err = errors.Join(err, prometheus.WriteToTextfile(metricsTextfile, obs.Registry))
	}

	return err
}

// publishAll publishes in order and stops at the first error.
func publishAll(ctx context.Context, publisher eventpublisher.EventPublisher, timeout time.Duration, events []RawEvent) (int, error) {
	for i, event := range events {
		if err := publishOne(ctx, publisher, timeout, event); err != nil {
			return i, fmt.Errorf("event %d (%s): %w", i+1, event.Type, err)
		}
	}

	return len(events), nil
}

func publishOne(ctx context.Context, publisher eventpublisher.EventPublisher, timeout time.Duration, event RawEvent) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if event.CorrelationID != "" {
		ctx = eventpublisher.WithCorrelationID(ctx, event.CorrelationID)
	}

	if event.CausationID != "" {
		ctx = eventpublisher.WithCausationID(ctx, event.CausationID)
	}

	return publisher.Publish(ctx, event)
}

func newRoutesCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the topic and queue of every known event type",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}

			return printRoutes(cmd.OutOrStdout(), cfg)
		},
	}
}

func printRoutes(out io.Writer, cfg config.Config) error {
	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	router := buildRouter(cfg)

	for _, eventType := range registry.EventTypes() {
		for _, kind := range []eventpublisher.DestinationKind{eventpublisher.DestinationTopic, eventpublisher.DestinationQueue} {
			destination, routeErr := router.Route(eventType, kind)
			if routeErr != nil {
				destination = "-"
			}

			if _, err = fmt.Fprintf(out, "%s\t%s\t%s\n", eventType, kind, destination); err != nil {
				return err
			}
		}
	}

	return nil
}

func newTypesCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "Print the known event types",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}

			registry, err := buildRegistry(cfg)
			if err != nil {
				return err
			}

			for _, eventType := range registry.EventTypes() {
				if _, err = fmt.Fprintln(cmd.OutOrStdout(), eventType); err != nil {
					return err
				}
			}

			return nil
		},
	}
}
