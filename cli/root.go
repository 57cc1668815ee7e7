// Package cli implements tessctl, the terminal client for a TESS server.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"tess-backend/handlers"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

// Execute runs the tessctl root command
func Execute() error {
	return NewRoot().Execute()
}

// NewRoot builds the command tree
func NewRoot() *cobra.Command {
	var server string

	root := &cobra.Command{
		Use:          "tessctl",
		Short:        "Terminal client for the TESS tax assistant",
		SilenceUsage: true,
	}

	fallback := os.Getenv("TESS_SERVER")
	if fallback == "" {
		fallback = defaultServer
	}
	root.PersistentFlags().StringVarP(&server, "server", "s", fallback, "server base URL")

	client := func() *Client { return NewClient(server) }
	root.AddCommand(
		chatCmd(client),
		dossiersCmd(client),
	)
	return root
}

var exitWords = map[string]bool{"quit": true, "exit": true, "stop": true, "bye": true}

func chatCmd(client func() *Client) *cobra.Command {
	var dossierID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, client(), strings.TrimSpace(dossierID))
		},
	}
	cmd.Flags().StringVarP(&dossierID, "dossier", "d", "", "dossier id to resume (default: new dossier)")
	return cmd
}

func runChat(cmd *cobra.Command, c *Client, dossierID string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "TESS, de Nederlandse belastingassistent")
	fmt.Fprintln(out, "Typ 'reset' voor een nieuw dossier en 'exit' om te stoppen.")
	if dossierID != "" {
		fmt.Fprintln(out, "Dossier:", dossierID)
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "\nU: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case exitWords[strings.ToLower(line)]:
			fmt.Fprintln(out, "Tot ziens!")
			return nil
		case strings.EqualFold(line, "reset"):
			dossierID = ""
			fmt.Fprintln(out, "Nieuw dossier gestart.")
			continue
		}

		resp, err := c.Chat(cmd.Context(), line, dossierID)
		if err != nil {
			fmt.Fprintln(out, "Fout:", err)
			continue
		}
		if resp.Status != handlers.StatusSuccess {
			fmt.Fprintln(out, "Fout:", resp.Error)
			continue
		}
		if dossierID == "" {
			fmt.Fprintln(out, "Dossier:", resp.DossierID)
		}
		dossierID = resp.DossierID
		fmt.Fprintln(out, "\nTESS:", resp.Response)
	}
}

func dossiersCmd(client func() *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dossiers",
		Short: "Inspect and manage stored dossiers",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List dossier ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := client().ListDossiers(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the sources and conversation of a dossier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := client().GetDossier(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			printDossier(cmd.OutOrStdout(), d)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a dossier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if err := client().DeleteDossier(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted", id)
			return nil
		},
	}

	var olderThan time.Duration
	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete dossiers that have not been updated recently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := client().Cleanup(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d dossier(s)\n", removed)
			return nil
		},
	}
	cleanup.Flags().DurationVar(&olderThan, "older-than", 0, "minimum age since last update (default: server setting)")

	cmd.AddCommand(list, show, del, cleanup)
	return cmd
}
