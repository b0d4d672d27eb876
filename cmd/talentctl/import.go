package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newImportCmd(root *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Embed and store candidate profiles from a JSON file",
		Long: `Reads a JSON array of candidate records, or an object with a "users" array,
and runs it through the same ingestion pipeline as POST /import-github-users.
Handles already in the store are skipped, so the command can be re-run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := readUsersFile(file)
			if err != nil {
				return err
			}

			a, logger, cleanup, err := root.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := a.Ingest.Ingest(cmd.Context(), users)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			logger.Info("Import finished",
				zap.Int("success", summary.Success),
				zap.Int("failed", summary.Failed),
				zap.Int("skipped", summary.Skipped),
			)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), summary.Message())
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the JSON file, - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readUsersFile(path string) ([]json.RawMessage, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("open users file: %w", err)
		}
		defer f.Close()
		r = f
	}
	return readUsers(r)
}

// readUsers accepts either a bare array or the request body shape {"users": [...]}.
func readUsers(r io.Reader) ([]json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("users file is empty")
	}

	var users []json.RawMessage
	if data[0] == '{' {
		var body struct {
			Users []json.RawMessage `json:"users"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, fmt.Errorf("decode users object: %w", err)
		}
		users = body.Users
	} else if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode users array: %w", err)
	}

	if len(users) == 0 {
		return nil, errors.New("users array is required and must not be empty")
	}
	return users, nil
}
