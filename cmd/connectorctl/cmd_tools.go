package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(diagnoseCmd, transformCmd)
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run the connector connectivity probes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
		defer cancel()

		report, err := newClient().Diagnostics(ctx)
		if err != nil {
			return err
		}
		if err := printJSON(cmd, report); err != nil {
			return err
		}

		probes, _ := report["probes"].([]interface{})
		for _, p := range probes {
			probe, _ := p.(map[string]interface{})
			if ok, _ := probe["success"].(bool); ok {
				continue
			}
			fmt.Fprintf(os.Stderr, "%v failed: %v\n  %v\n", probe["name"], probe["error"], probe["remediation"])
		}
		return nil
	},
}

var transformCmd = &cobra.Command{
	Use:   "transform <text>",
	Short: "Preview competitor rewriting of a message text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
		defer cancel()

		res, err := newClient().Transform(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}
