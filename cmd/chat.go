package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stock-sentinel-bot/config"
	"stock-sentinel-bot/internal/commands"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Local test mode: talk to the bot from the terminal, track every minute",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Validate(); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp()
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		defer a.Close()

		bot, err := a.newBot(a.dispatcher)
		if err != nil {
			return err
		}

		interval, _ := cmd.Flags().GetDuration("interval")
		tracker := a.newTracker(bot, interval)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return tracker.Start(gctx) })
		g.Go(func() error {
			defer stop()
			return chatLoop(gctx, a.dispatcher, config.GetInt64("telegram_chat_id"), os.Stdin, cmd.OutOrStdout())
		})
		return g.Wait()
	},
}

func init() {
	chatCmd.Flags().Duration("interval", time.Minute, "tracking interval")
}

// chatLoop feeds each input line to the dispatcher until EOF, "exit" or ctx is done.
func chatLoop(ctx context.Context, dispatcher *commands.Dispatcher, chatID int64, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(out, "💬 Stock Sentinel chat. Type \"exit\" to quit.")
	for {
		fmt.Fprint(out, "> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				return nil
			}
			fmt.Fprintln(out, dispatcher.Handle(ctx, chatID, line))
		}
	}
}
