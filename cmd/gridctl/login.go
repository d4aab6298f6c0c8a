package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
)

func newLoginCmd(root *rootFlags) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize against the grid and print a bearer token",
		Long: `Login exchanges a username and password for a bearer token and prints it.
Export it as GRIDCTL_AUTH_TOKEN to skip the login request on later runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var base config.Connection
			if configPath != "" {
				cfg, err := config.ParseConfig(configPath)
				if err != nil {
					return err
				}
				base = cfg.Connection
			}

			token, err := runLogin(cmd.Context(), root, base)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Read connection settings from a configuration file")

	return cmd
}

func runLogin(ctx context.Context, root *rootFlags, base config.Connection) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	log, err := newLogger(root.verbose, true)
	if err != nil {
		return "", err
	}

	conn, err := root.source.Read(base)
	if err != nil {
		return "", err
	}
	if conn.Username == "" || conn.Password == "" {
		return "", sgapi.ErrNoCredentials
	}

	// Without a token the client sends no Authorization header.
	cfg := clientConfig(conn)
	cfg.AuthToken = ""
	client, err := sgapi.New(cfg, log)
	if err != nil {
		return "", err
	}

	token, err := client.Authorize(ctx, sgapi.Credentials{
		Username: conn.Username,
		Password: conn.Password,
		TenantID: conn.TenantID,
	})
	if err != nil {
		return "", connectError(conn.APIURL, err)
	}
	return token, nil
}
