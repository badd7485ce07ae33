package main

import (
	"encoding/json"
	"fmt"

	"stock-sentinel-bot/config"
	"stock-sentinel-bot/internal/alert"
	"stock-sentinel-bot/internal/detector"
	"stock-sentinel-bot/internal/store"
	"stock-sentinel-bot/lib/helpers"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

var researchCmd = &cobra.Command{
	Use:   "research [symbol]",
	Short: "Fetch a quote and research the latest move",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := store.NormalizeSymbol(args[0])
		if !store.ValidSymbol(symbol) {
			return errors.Wrap(store.ErrInvalidSymbol, args[0])
		}
		send, _ := cmd.Flags().GetBool("send")
		asJSON, _ := cmd.Flags().GetBool("json")

		if send {
			if err := config.Validate(); err != nil {
				return err
			}
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		quote, err := a.router.Quote(ctx, symbol)
		if err != nil {
			return err
		}
		report, err := a.researcher.Research(ctx, quote)
		if err != nil {
			return err
		}
		signal := detector.Evaluate(quote.Price, quote.PreviousClose)

		out := cmd.OutOrStdout()
		if asJSON {
			data, err := json.Marshal(report)
			if err != nil {
				return errors.Wrap(err, "encode report")
			}
			out.Write(pretty.Pretty(data))
		} else {
			fmt.Fprintf(out, "%s  %s %s  (previous close %s, %s)\n",
				quote.Symbol,
				helpers.FormatPriceUS(quote.Price, false),
				quote.Currency,
				helpers.FormatPriceUS(quote.PreviousClose, false),
				helpers.FormatPercent(signal.Percent(), false))
			if signal.Triggered {
				fmt.Fprintln(out, "Move is above the alert threshold.")
			}
			fmt.Fprintf(out, "\n%s\n", report.Summary)
		}

		if !send {
			return nil
		}
		bot, err := a.newBot(nil)
		if err != nil {
			return err
		}
		return bot.Notify(ctx, alert.ComposeAlert(quote, signal, report.Summary))
	},
}

func init() {
	researchCmd.Flags().Bool("send", false, "also send the result to the configured Telegram chat")
	researchCmd.Flags().Bool("json", false, "print the report as JSON")
}
