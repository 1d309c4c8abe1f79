package cmd

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/haiblock/haiblock-go/cognito"
)

var (
	email       string
	accountName string
	showAll     bool
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Exchange e-mail and password for an API token",
	Long: `Authenticate against the HaiBlock Cognito user pool and print the access
token. Export it as HAIBLOCK_AUTH_TOKEN or store it as api.token.`,
	RunE: runLogin,
}

// signupCmd represents the signup command
var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a HaiBlock account",
	RunE:  runSignup,
}

// confirmCmd represents the confirm command
var confirmCmd = &cobra.Command{
	Use:   "confirm <code>",
	Short: "Confirm a new account with the e-mailed verification code",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfirm,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, signupCmd, confirmCmd} {
		c.Flags().StringVarP(&email, "email", "e", "", "account e-mail address")
		_ = c.MarkFlagRequired("email")
	}
	loginCmd.Flags().BoolVar(&showAll, "all", false, "print id and refresh tokens too")
	signupCmd.Flags().StringVarP(&accountName, "name", "n", "", "display name")
}

func newCognitoClient(cmd *cobra.Command) (*cognito.Client, error) {
	client, err := cognito.New(cmd.Context(), cognito.Config{
		Region:     cfg.Cognito.Region,
		UserPoolID: cfg.Cognito.UserPoolID,
		ClientID:   cfg.Cognito.ClientID,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cognito client: %w", err)
	}
	return client, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	client, err := newCognitoClient(cmd)
	if err != nil {
		return err
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	tokens, err := client.Authenticate(cmd.Context(), email, password)
	if err != nil {
		if errors.Is(err, cognito.ErrUserNotConfirmed) {
			return fmt.Errorf("%w: run 'haiblock confirm --email %s <code>' first", err, email)
		}
		return err
	}

	logger.Info().Str("email", email).Int32("expires_in", tokens.ExpiresIn).Msg("Login successful")

	if jsonOut {
		return printJSON(tokens)
	}
	if showAll {
		fmt.Printf("access_token:  %s\nid_token:      %s\nrefresh_token: %s\n", tokens.AccessToken, tokens.IDToken, tokens.RefreshToken)
		return nil
	}
	fmt.Println(tokens.AccessToken)
	return nil
}

func runSignup(cmd *cobra.Command, args []string) error {
	client, err := newCognitoClient(cmd)
	if err != nil {
		return err
	}

	password, err := readPassword("Choose a password: ")
	if err != nil {
		return err
	}

	result, err := client.SignUp(cmd.Context(), email, password, accountName)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(result)
	}
	if result.Confirmed {
		fmt.Println("✓ Account created and confirmed")
		return nil
	}
	fmt.Printf("✓ Account created. A verification code was sent to %s\n", cmp.Or(result.Destination, email))
	fmt.Printf("Run 'haiblock confirm --email %s <code>' to activate it.\n", email)
	return nil
}

func runConfirm(cmd *cobra.Command, args []string) error {
	client, err := newCognitoClient(cmd)
	if err != nil {
		return err
	}

	if err := client.ConfirmSignUp(cmd.Context(), email, strings.TrimSpace(args[0])); err != nil {
		return err
	}

	fmt.Println("✓ Account confirmed. You can now run 'haiblock login'.")
	return nil
}

// readPassword prompts on a terminal without echo, or reads one line from
// piped input.
func readPassword(prompt string) (string, error) {
	if pw := os.Getenv("HAIBLOCK_PASSWORD"); pw != "" {
		return pw, nil
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
