package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/logger"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
	gridctlerrors "github.com/alexisbeaulieu97/gridctl/pkg/errors"
)

// apiTransport replaces the HTTP transport of every API client when set.
var apiTransport http.RoundTripper

// logOutput is where command loggers write.
var logOutput io.Writer

func newLogger(verbose, humanReadable bool) (*logger.Logger, error) {
	level := "info"
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Options{Level: level, HumanReadable: humanReadable, Writer: logOutput})
}

// resolveConnection layers the environment and flags over the document's
// connection block and validates the result.
func resolveConnection(src *config.Source, base config.Connection) (config.Connection, error) {
	if src == nil {
		src = config.NewSource()
	}
	conn, err := src.Read(base)
	if err != nil {
		return config.Connection{}, err
	}
	if err := config.ValidateConnection(conn); err != nil {
		return config.Connection{}, err
	}
	return conn, nil
}

func clientConfig(conn config.Connection) sgapi.Config {
	return sgapi.Config{
		APIURL:        conn.APIURL,
		AuthToken:     conn.AuthToken,
		Username:      conn.Username,
		Password:      conn.Password,
		TenantID:      conn.TenantID,
		ValidateCerts: conn.VerifyCerts(),
		Transport:     apiTransport,
	}
}

// connectGrid logs in and reads the grid release. A grid whose version
// cannot be read is still usable; version gates are then skipped.
func connectGrid(ctx context.Context, src *config.Source, base config.Connection, log *logger.Logger) (*sgapi.Client, sgapi.Version, error) {
	conn, err := resolveConnection(src, base)
	if err != nil {
		return nil, sgapi.Version{}, err
	}

	client, err := sgapi.Connect(ctx, clientConfig(conn), log)
	if err != nil {
		return nil, sgapi.Version{}, connectError(conn.APIURL, err)
	}

	gridVersion, err := sgapi.ProductVersion(ctx, client)
	if err != nil {
		log.Warn(fmt.Sprintf("could not read grid version, skipping version checks: %v", err))
		return client, sgapi.Version{}, nil
	}
	log.WithFields(map[string]any{"version": gridVersion.String()}).Debug("connected to grid")
	return client, gridVersion, nil
}

func connectError(apiURL string, err error) error {
	if gridctlerrors.IsUnauthorized(err) {
		return fmt.Errorf("connect to %s: credentials rejected: %w", apiURL, err)
	}
	return fmt.Errorf("connect to %s: %w", apiURL, err)
}
