package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orvan-io/dirsync/internal/engine"
	"github.com/orvan-io/dirsync/internal/model"
)

func newResyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Repopulate the cache from a full directory scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.engine.Resync(cmd.Context())
		},
	}
}

func newFindCmd(a *app) *cobra.Command {
	var (
		groups     []string
		companies  []string
		criteria   string
		orderBy    string
		descending bool
		page       int
		pageSize   int
	)
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Query the user population",
		Long:  "Scans the directory, then filters the population by group membership, company scope and free-text criteria, printing the requested page as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.engine.Resync(cmd.Context()); err != nil {
				return err
			}
			query := engine.Query{
				Companies:  companies,
				Criteria:   criteria,
				OrderBy:    orderBy,
				Descending: descending,
				Page:       engine.PageRequest{Number: page, Size: pageSize},
			}
			if cmd.Flags().Changed("group") {
				query.RequiredGroups = groups
			}
			result := a.engine.FindAllFiltered(query)
			return printJSON(result)
		},
	}
	cmd.Flags().StringSliceVar(&groups, "group", nil, "Required group membership (repeatable)")
	cmd.Flags().StringSliceVar(&companies, "company", nil, "Visible company scope (repeatable)")
	cmd.Flags().StringVar(&criteria, "criteria", "", "Free-text filter over name, login and mail")
	cmd.Flags().StringVar(&orderBy, "order-by", "id", "Sort field (company, id, firstName, lastName, mail)")
	cmd.Flags().BoolVar(&descending, "desc", false, "Reverse the sort order")
	cmd.Flags().IntVar(&page, "page", 0, "Zero-based page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "Page size, 0 for everything")
	return cmd
}

func newLockCmd(a *app) *cobra.Command {
	var principal string
	cmd := &cobra.Command{
		Use:   "lock <login>",
		Short: "Lock an account and clear its credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.lookup(cmd, args[0])
			if err != nil {
				return err
			}
			return a.engine.Lock(cmd.Context(), principal, user)
		},
	}
	cmd.Flags().StringVar(&principal, "principal", "", "Principal recorded as the locking actor")
	_ = cmd.MarkFlagRequired("principal")
	return cmd
}

func newUnlockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <login>",
		Short: "Remove the lock from an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.lookup(cmd, args[0])
			if err != nil {
				return err
			}
			return a.engine.Unlock(cmd.Context(), user)
		},
	}
}

func newIsolateCmd(a *app) *cobra.Command {
	var principal string
	cmd := &cobra.Command{
		Use:   "isolate <login>",
		Short: "Lock an account and move it to the quarantine subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.lookup(cmd, args[0])
			if err != nil {
				return err
			}
			return a.engine.Isolate(cmd.Context(), principal, user)
		},
	}
	cmd.Flags().StringVar(&principal, "principal", "", "Principal recorded as the locking actor")
	_ = cmd.MarkFlagRequired("principal")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <login>",
		Short: "Move an isolated account back to its previous company and unlock it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.lookup(cmd, args[0])
			if err != nil {
				return err
			}
			return a.engine.Restore(cmd.Context(), user)
		},
	}
}

func newPasswdCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <login>",
		Short: "Set an account's credential",
		Long:  "Sets the account's credential to the value of the DIRSYNC_NEW_PASSWORD environment variable, digested the way the directory stores credentials.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("DIRSYNC_NEW_PASSWORD")
			if password == "" {
				return fmt.Errorf("DIRSYNC_NEW_PASSWORD is not set")
			}
			user, err := a.lookup(cmd, args[0])
			if err != nil {
				return err
			}
			return a.engine.SetPassword(cmd.Context(), user, password)
		},
	}
}

// lookup scans the directory and resolves a login against the populated
// cache, so lifecycle commands always act on reconciled state.
func (a *app) lookup(cmd *cobra.Command, login string) (*model.User, error) {
	if err := a.engine.Resync(cmd.Context()); err != nil {
		return nil, err
	}
	return a.engine.FindByID(login)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
