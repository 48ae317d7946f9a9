// Command eventpublisher publishes events from the command line through a configured transport.
//
//	eventpublisher --config eventpublisher.yaml publish --type OrderCreated --data '{"orderId":"4711"}'
//	eventpublisher --config eventpublisher.yaml publish --file events.jsonl
//	eventpublisher --config eventpublisher.yaml routes
//	eventpublisher --config eventpublisher.yaml types
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1) //nolint:gocritic
	}
}
