package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/report-management/internal/bot"
	"github.com/frahmantamala/report-management/internal/core/events"
	"github.com/frahmantamala/report-management/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start worker pools for various services",
	Long:  `Start and manage worker pools for different services like message delivery and event processing.`,
}

// Bot sender worker command
var botWorkerCmd = &cobra.Command{
	Use:   "bot",
	Short: "Start bot message delivery worker pool",
	Long:  `Start the worker pool that delivers queued messages to the chat platform`,
	Run: func(cmd *cobra.Command, args []string) {
		startBotWorker()
	},
}

// Event Bus worker command
var eventWorkerCmd = &cobra.Command{
	Use:   "events",
	Short: "Start event bus worker",
	Long:  `Start the event bus `,
	Run: func(cmd *cobra.Command, args []string) {
		startEventWorker()
	},
}

var (
	maxWorkers     int
	jobQueueSize   int
	workerPoolSize int
	apiURL         string
)

func startBotWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logger.LoggerWrapper()

	// Use command line flags if provided, otherwise use config values
	botConfig := bot.ClientConfig{
		APIURL:         getStringFlag(apiURL, config.Bot.APIURL),
		Token:          config.Bot.Token,
		SendTimeout:    config.Bot.SendTimeout,
		MaxWorkers:     getIntFlag(maxWorkers, config.Bot.MaxWorkers),
		JobQueueSize:   getIntFlag(jobQueueSize, config.Bot.JobQueueSize),
		WorkerPoolSize: getIntFlag(workerPoolSize, config.Bot.WorkerPoolSize),
	}

	logger.Info("starting bot worker",
		"max_workers", botConfig.MaxWorkers,
		"job_queue_size", botConfig.JobQueueSize,
		"worker_pool_size", botConfig.WorkerPoolSize,
		"api_url", botConfig.APIURL)

	client := bot.NewClient(botConfig, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("bot worker is running. Press Ctrl+C to stop.")

	// wait for shutdown signal
	sig := <-sigChan
	logger.Info("received signal, shutting down bot worker", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		client.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		logger.Info("bot worker pool shutdown complete")
	case <-ctx.Done():
		logger.Warn("shutdown timeout reached, forcing exit")
	}
}

func startEventWorker() {
	_, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logger.LoggerWrapper()

	eventBus := events.NewEventBus(logger)

	eventBus.Subscribe("test.event", func(ctx context.Context, event events.Event) error {
		logger.Info("received test event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	logger.Info("event bus worker started. Waiting for events...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("event bus is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	logger.Info("received signal, shutting down event bus", "signal", sig)
	logger.Info("event bus shutdown complete")
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	botWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	botWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	botWorkerCmd.Flags().IntVar(&workerPoolSize, "worker-pool-size", 0, "Worker pool channel size (overrides config)")
	botWorkerCmd.Flags().StringVar(&apiURL, "api-url", "", "Chat platform API URL (overrides config)")

	workerCmd.AddCommand(botWorkerCmd)
	workerCmd.AddCommand(eventWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
