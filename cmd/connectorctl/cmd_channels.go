package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	flagFrom string
	flagTo   string
)

func init() {
	rootCmd.AddCommand(listenCmd, repostCmd)

	repostCmd.Flags().StringVar(&flagFrom, "from", "", "source channel handle")
	repostCmd.Flags().StringVar(&flagTo, "to", "", "target channel handle")
	_ = repostCmd.MarkFlagRequired("from")
	_ = repostCmd.MarkFlagRequired("to")
}

var listenCmd = &cobra.Command{
	Use:   "listen <channel>...",
	Short: "Subscribe to channels and print their latest messages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := baseRequest("listen")
		req.ChannelNames = args
		return call(cmd, req)
	},
}

var repostCmd = &cobra.Command{
	Use:   "repost <message-id>",
	Short: "Forward a message from one channel to another",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid message id: %s", args[0])
		}

		req := baseRequest("repost")
		req.MessageID = id
		req.SourceChannel = flagFrom
		req.TargetChannel = flagTo
		return call(cmd, req)
	},
}
