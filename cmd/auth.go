package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"invoicer/internal/gauth"
	"invoicer/internal/logger"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorise invoicer to use Drive, Gmail and Sheets on your behalf",
	Long: `Run the OAuth consent flow for the installed-app client in
GOOGLE_CLIENT_SECRET_FILE and store the resulting token in
GOOGLE_TOKEN_FILE. Open the printed URL, approve access and paste the
code shown by Google.

Only needed once; the token is refreshed and saved automatically.`,
	Example: `  invoicer auth`,
	Args:    cobra.NoArgs,
	RunE:    runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)

	authCmd.Flags().String("code", "", "Authorisation code (skips the prompt)")
	authCmd.Flags().Int("timeout", 300, "Timeout in seconds")
}

func runAuth(cmd *cobra.Command, _ []string) error {
	log := logger.WithComponent("auth")

	cfg, err := requireConfig()
	if err != nil {
		return err
	}
	creds := googleCredentials(cfg)
	if !creds.HasUserToken() {
		return fmt.Errorf("set GOOGLE_CLIENT_SECRET_FILE and GOOGLE_TOKEN_FILE first")
	}

	code, _ := cmd.Flags().GetString("code")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	oauthCfg, err := gauth.OAuthConfig(creds, deliveryScopes...)
	if err != nil {
		return err
	}

	if code == "" {
		url := oauthCfg.AuthCodeURL("invoicer", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in your browser and approve access:\n\n  %s\n\nCode: ", url)

		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read authorisation code: %w", err)
		}
		code = strings.TrimSpace(line)
	}
	if code == "" {
		return fmt.Errorf("no authorisation code given")
	}

	ctx, cancel := createContext(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	tok, err := gauth.Exchange(ctx, oauthCfg, code, creds.TokenFile)
	if err != nil {
		log.Error().Err(err).Msg("Authorisation failed")
		return err
	}

	log.Info().
		Str("token_file", creds.TokenFile).
		Bool("refresh_token", tok.RefreshToken != "").
		Msg("Token saved")
	fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", creds.TokenFile)
	return nil
}
