package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/auth"
	"github.com/custodia-labs/lettermerge/internal/adapters/driving/oauth"
)

var (
	authClientID     string
	authClientSecret string
	authPort         int
)

// runConsent is replaced in tests.
var runConsent = func(ctx context.Context, port int, clientID, clientSecret string) (string, error) {
	c := &oauth.Consent{Port: port}
	return c.Run(ctx, clientID, clientSecret)
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage credentials",
	Long: `Connect a Google account for Gmail delivery and Drive publication,
and issue API keys for 'lettermerge serve'.`,
}

var authGoogleCmd = &cobra.Command{
	Use:   "google",
	Short: "Connect a Google account",
	Long: `Runs the OAuth consent flow in your browser and stores the refresh token.

Create a Desktop OAuth client in the Google Cloud console with the Gmail
API and Drive API enabled, then pass its id and secret or enter them when
prompted.

Examples:
  lettermerge auth google
  lettermerge auth google --client-id xxx.apps.googleusercontent.com`,
	RunE: runAuthGoogle,
}

var authKeyCmd = &cobra.Command{
	Use:   "key",
	Short: "Create an API key for the HTTP server",
	Long: `Generates a new bearer key and stores its bcrypt hash.

The key is printed once and cannot be recovered.`,
	RunE: runAuthKey,
}

func init() {
	authGoogleCmd.Flags().StringVar(&authClientID, "client-id", "", "OAuth client ID")
	authGoogleCmd.Flags().StringVar(&authClientSecret, "client-secret", "", "OAuth client secret")
	authGoogleCmd.Flags().IntVar(&authPort, "port", 0, "loopback callback port (0 = any free port)")
	authCmd.AddCommand(authGoogleCmd)
	authCmd.AddCommand(authKeyCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthGoogle(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	clientID := authClientID
	if clientID == "" {
		cmd.Print("Client ID: ")
		line, err := readLine(reader)
		if err != nil {
			return err
		}
		clientID = line
	}

	clientSecret := authClientSecret
	if clientSecret == "" {
		cmd.Print("Client secret: ")
		secret, err := readSecret(cmd.InOrStdin(), reader)
		cmd.Println()
		if err != nil {
			return err
		}
		clientSecret = secret
	}

	if clientID == "" || clientSecret == "" {
		return errors.New("client id and secret are required")
	}

	cmd.Println("Opening your browser to authorise lettermerge...")
	refreshToken, err := runConsent(cmd.Context(), authPort, clientID, clientSecret)
	if err != nil {
		return fmt.Errorf("google authorisation failed: %w", err)
	}

	if err := settingsService.SetGoogleCredentials(clientID, clientSecret, refreshToken); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	cmd.Println("Google account connected.")
	return nil
}

func runAuthKey(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, err := auth.GenerateKey()
	if err != nil {
		return err
	}
	hash, err := auth.HashKey(key)
	if err != nil {
		return err
	}
	if err := settingsService.AddAPIKeyHash(hash); err != nil {
		return fmt.Errorf("failed to save key: %w", err)
	}

	cmd.Println("New API key (shown once):")
	cmd.Println()
	cmd.Printf("  %s\n", key)
	cmd.Println()
	cmd.Println("Send it as 'Authorization: Bearer <key>'.")
	return nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readSecret reads without echo when in is a terminal.
func readSecret(in io.Reader, r *bufio.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return readLine(r)
}
