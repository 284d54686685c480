package main

import (
	"bufio"
	"chat-relay/client"
	"chat-relay/domain"
	"chat-relay/infrastructure/identity"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"
)

var config Config

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "chat-cli",
		Short: "Terminal client for the chat relay",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if config, err = LoadConfig(); err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if !config.Colours {
				color.Disable()
			}
			return nil
		},
		SilenceUsage: true,
	}

	root.AddCommand(chatCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(loginCmd())
	root.AddCommand(registerCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(logs.GetLoggerFromString(config.LogLevel), client.Config{
		URL:               config.RelayURL,
		Origin:            config.Origin,
		ReconnectAttempts: config.ReconnectAttempts,
		ReconnectDelay:    config.ReconnectDelay,
	})
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <session>",
		Short: "Join a session and relay every stdin line to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c := newClient()
			if err := c.Connect(ctx); err != nil {
				return err
			}
			if err := c.Join(domain.SessionID(args[0])); err != nil {
				return err
			}

			runErr := make(chan error, 1)
			go func() { runErr <- c.Run(ctx) }()
			go func() {
				for env := range c.Incoming() {
					if _, err := render(cmd.OutOrStdout(), env); err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), failure.Render(err.Error()))
					}
				}
			}()

			go func() {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					text := strings.TrimSpace(scanner.Text())
					if text == "" {
						continue
					}
					if err := c.Send(text); err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), failure.Render(err.Error()))
					}
				}
				stop()
			}()

			return <-runErr
		},
	}
}

func historyCmd() *cobra.Command {
	var cursor string
	cmd := &cobra.Command{
		Use:   "history <session>",
		Short: "Print one page of a session history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			c := newClient()
			if err := c.Connect(ctx); err != nil {
				return err
			}
			go func() { _ = c.Run(ctx) }()

			var next *string
			if cursor != "" {
				next = &cursor
			}
			if err := c.History(domain.SessionID(args[0]), next); err != nil {
				return err
			}
			for env := range c.Incoming() {
				page, err := render(cmd.OutOrStdout(), env)
				if err != nil {
					return err
				}
				if page != nil {
					cancel()
					return nil
				}
			}
			return errors.New("relay closed before answering")
		},
	}
	cmd.Flags().StringVar(&cursor, "cursor", "", "cursor returned by a previous page")
	return cmd
}

func loginCmd() *cobra.Command {
	var identifier, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in against the identity provider and print the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := identity.NewClient(config.IdentityURL, nil).Login(cmd.Context(), identifier, password)
			if err != nil {
				return err
			}
			return printToken(cmd, token)
		},
	}
	cmd.Flags().StringVarP(&identifier, "identifier", "u", "", "username or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("identifier")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func registerCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the identity provider and print the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := identity.NewClient(config.IdentityURL, nil).Register(cmd.Context(), username, email, password)
			if err != nil {
				return err
			}
			return printToken(cmd, token)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func printToken(cmd *cobra.Command, token string) error {
	fmt.Fprintln(cmd.OutOrStdout(), token)
	expiry, err := identity.TokenExpiry(token)
	if err != nil {
		return err
	}
	if expiry != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), stamp.Render("expires "+expiry.Local().Format(time.RFC1123)))
	}
	return nil
}
