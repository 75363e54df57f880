package main

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/goliatone/go-yayasan"
	"github.com/goliatone/go-yayasan/tokenstore"
	"github.com/spf13/cobra"
)

// cliSession is the terminal counterpart of the per browser web session,
// always backed by the file store
type cliSession struct {
	client *yayasan.APIClient
	auth   *yayasan.AuthStore
}

func openSession() (*cliSession, error) {
	store, err := tokenstore.NewFileStore(cfg.Store.Path, tokenstore.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	client, err := yayasan.NewAPIClient(cfg, store, yayasan.WithClientLogger(logger))
	if err != nil {
		return nil, err
	}

	auth := yayasan.NewAuthStore(client.Auth(), store,
		yayasan.WithLogger(logger),
		yayasan.WithTokenExpiryCheck(nil),
	)
	auth.CheckAuth()

	return &cliSession{client: client, auth: auth}, nil
}

// handle reports an expired session with the login command to run next.
// The error is returned unchanged so the exit status stays non zero.
func (s *cliSession) handle(err error) error {
	if err == nil {
		return nil
	}

	routes := cfg.GuardRoutes()
	hint := yayasan.NavigatorFunc(func(path string) error {
		printer.Warning("session expired, log in again with `yayasan %s`", loginCommandFor(routes, path))
		return nil
	})
	reportExpiry(s.auth, routes, hint, logger, err)
	return err
}

// reportExpiry clears an expired session and points the user at the login
// command for the account type that was active.
func reportExpiry(auth *yayasan.AuthStore, routes yayasan.GuardRoutes, nav yayasan.Navigator, log yayasan.Logger, err error) bool {
	handler := yayasan.NewSessionExpiryHandler(auth, nav)
	// the type is still known here, the store is already cleared
	handler.LoginPath = routes.LoginPathFor(auth.State().UserType)
	handler.Logger = log

	handled, navErr := handler.Handle(err)
	if navErr != nil {
		log.Error("failed to show the login hint: %s", navErr)
	}
	return handled
}

func loginCommandFor(routes yayasan.GuardRoutes, path string) string {
	if path == routes.ApplicantLogin {
		return "signin"
	}
	return "login"
}

var loginCmd = &cobra.Command{
	Use:   "login <identifier>",
	Short: "Log in as administrative staff",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuthenticate(cmd, args[0], yayasan.AccountAdmin)
	},
}

var signinCmd = &cobra.Command{
	Use:   "signin <identifier>",
	Short: "Sign in as an applicant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuthenticate(cmd, args[0], yayasan.AccountApplicant)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an applicant account",
	Long: `Create an applicant account. Registration does not log in, run
yayasan signin afterwards.`,
	RunE: runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return err
		}
		if err := sess.auth.Logout(); err != nil {
			return err
		}
		printer.Success("logged out")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session",
	RunE:  runStatus,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, signinCmd} {
		c.Flags().StringP("password", "p", "", "password, read from stdin when empty")
		rootCmd.AddCommand(c)
	}

	registerCmd.Flags().String("name", "", "full name")
	registerCmd.Flags().String("email", "", "email address")
	registerCmd.Flags().String("phone", "", "phone number")
	registerCmd.Flags().StringP("password", "p", "", "password, read from stdin when empty")

	statusCmd.Flags().Bool("refresh", false, "fetch the profile from the backend")

	rootCmd.AddCommand(registerCmd, logoutCmd, statusCmd)
}

func runAuthenticate(cmd *cobra.Command, identifier string, kind yayasan.AccountType) error {
	password, err := passwordFrom(cmd)
	if err != nil {
		return err
	}

	sess, err := openSession()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var account *yayasan.Account
	switch kind {
	case yayasan.AccountAdmin:
		account, err = sess.auth.Login(ctx, identifier, password)
	default:
		account, err = sess.auth.Signin(ctx, identifier, password)
	}
	if err != nil {
		// a 401 from the login endpoint means bad credentials
		if yayasan.IsSessionExpired(err) {
			return errors.New("invalid credentials")
		}
		return err
	}

	printer.Success("logged in as %s (%s)", account.DisplayName(), kind)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	phone, _ := cmd.Flags().GetString("phone")

	password, err := passwordFrom(cmd)
	if err != nil {
		return err
	}

	sess, err := openSession()
	if err != nil {
		return err
	}

	err = sess.auth.Register(cmd.Context(), yayasan.RegisterInput{
		Name:     name,
		Email:    email,
		Password: password,
		Phone:    phone,
	})
	if err != nil {
		return err
	}

	printer.Success("account created for %s, sign in with `yayasan signin %s`", email, email)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}

	state := sess.auth.State()
	if !state.IsAuthenticated {
		printer.Print("%s no active session", printer.Badge(false, "anonymous"))
		return nil
	}

	if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
		if _, err := sess.auth.RefreshProfile(cmd.Context()); err != nil {
			return sess.handle(err)
		}
		state = sess.auth.State()
	}

	printer.Print("%s %s", printer.Badge(true, string(state.UserType)), state.User.DisplayName())
	printer.Table([]string{"field", "value"}, [][]string{
		{"id", state.User.ID.String()},
		{"nama", state.User.Nama},
		{"email", state.User.Email},
		{"username", state.User.Username},
		{"level", state.User.Level},
	})
	return nil
}

// passwordFrom reads --password, or the first line of stdin
func passwordFrom(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		return p, nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
