package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Conte777/NewsFlow/services/connector-service/pkg/connectorclient"
	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

var (
	flagURL     string
	flagToken   string
	flagTimeout time.Duration
	flagSession string

	flagAccount string
	flagAPIID   string
	flagAPIHash string
	flagPhone   string
)

var rootCmd = &cobra.Command{
	Use:           "connectorctl",
	Short:         "Command line client of the Telegram connector",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagURL, "url", envOr("CONNECTOR_URL", "http://localhost:8080"), "connector base URL")
	pf.StringVar(&flagToken, "token", os.Getenv("CONNECTOR_TOKEN"), "bearer token for /api/v1")
	pf.DurationVar(&flagTimeout, "timeout", 90*time.Second, "request timeout")
	pf.StringVar(&flagSession, "session", os.Getenv("CONNECTOR_SESSION"), "session string to send")

	pf.StringVar(&flagAccount, "account", os.Getenv("CONNECTOR_ACCOUNT"), "account id")
	pf.StringVar(&flagAPIID, "api-id", os.Getenv("TELEGRAM_API_ID"), "Telegram API id")
	pf.StringVar(&flagAPIHash, "api-hash", os.Getenv("TELEGRAM_API_HASH"), "Telegram API hash")
	pf.StringVar(&flagPhone, "phone", os.Getenv("TELEGRAM_PHONE"), "phone number in E.164 format")
}

func newClient() *connectorclient.Client {
	return connectorclient.New(connectorclient.Config{
		BaseURL: flagURL,
		Token:   flagToken,
		Timeout: flagTimeout,
	})
}

// baseRequest fills the credential fields shared by every operation
func baseRequest(op string) connectorclient.Request {
	return connectorclient.Request{
		Operation:     op,
		AccountID:     flagAccount,
		APIID:         flagAPIID,
		APIHash:       flagAPIHash,
		PhoneNumber:   flagPhone,
		SessionString: flagSession,
	}
}

// call runs one RPC operation and prints the response
func call(cmd *cobra.Command, req connectorclient.Request) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	resp, err := newClient().Call(ctx, req)
	if err != nil {
		if resp != nil && resp.Title != "" {
			return fmt.Errorf("%s: %w", resp.Title, err)
		}
		if kind := pkgerrors.KindOf(err); kind != pkgerrors.KindUnknown {
			return fmt.Errorf("%s: %w", kind.Title(), err)
		}
		return err
	}

	if err := printJSON(cmd, resp); err != nil {
		return err
	}
	if resp.Session != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "\nexport CONNECTOR_SESSION=%q\n", resp.Session)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
