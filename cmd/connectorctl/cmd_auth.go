package main

import (
	"github.com/spf13/cobra"
)

var (
	flagHash     string
	flagPassword string
	flagLogout   bool
)

func init() {
	rootCmd.AddCommand(validateCmd, connectCmd, verifyCmd, passwordCmd, statusCmd, disconnectCmd, healthcheckCmd)

	verifyCmd.Flags().StringVar(&flagHash, "hash", "", "phone code hash returned by connect")
	passwordCmd.Flags().StringVar(&flagPassword, "password", "", "two-step verification password")
	disconnectCmd.Flags().BoolVar(&flagLogout, "logout", false, "log out and clear the stored session")
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check credentials and connector reachability",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, baseRequest("validate"))
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect an account, resuming its session or requesting a login code",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, baseRequest("connect"))
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <code>",
	Short: "Submit the login code sent by Telegram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := baseRequest("verify")
		req.VerificationCode = args[0]
		req.PhoneCodeHash = flagHash
		return call(cmd, req)
	},
}

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Submit the two-step verification password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := baseRequest("password")
		req.Password = flagPassword
		return call(cmd, req)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the connection status of an account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, baseRequest("status"))
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Disconnect an account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := baseRequest("disconnect")
		req.Logout = flagLogout
		return call(cmd, req)
	},
}

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Ping the connector RPC endpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, baseRequest("healthcheck"))
	},
}
