/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/coursebase/apiserver/config"
	"github.com/coursebase/apiserver/internal/mq"
	"github.com/coursebase/apiserver/internal/notify"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Runs the mail delivery worker",
	Long: `Runs the mail delivery worker, consuming notification jobs enqueued
by the API server and delivering them out-of-band. Usage:

	coursebase worker
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()
		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		broker, err := mq.Open(cmd.Context(), cfg.Broker)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect broker: %v\n", err)
			os.Exit(1)
		}
		defer broker.Close()

		mailer := notify.NewLogMailer(logger)
		worker := notify.NewWorker(broker, mailer, cfg.Broker.MailQueue, cfg.Mail.From, logger)

		if err := worker.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "worker error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
