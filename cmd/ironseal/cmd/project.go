package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/ironseal/project"
	"github.com/jmcleod/ironseal/secret"
)

var projectDescription string

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage stored projects and their password parameters",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmdContext(cmd), func(ctx context.Context, store *project.Store) error {
			names, err := store.List(ctx)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		})
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a project's stored configuration",
	Long:  `Prints the configuration exactly as stored. Secrets appear as envelopes.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmdContext(cmd), func(ctx context.Context, store *project.Store) error {
			text, err := store.ConfigText(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		})
	},
}

var projectSetPasswordCmd = &cobra.Command{
	Use:   "set-password NAME PARAMETER",
	Short: "Set a password parameter's default value",
	Long: `Reads the new value from stdin and stores it encrypted. The project and
parameter are created if they do not exist.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := readValue(nil, cmd.InOrStdin())
		if err != nil {
			return err
		}
		return withStore(cmdContext(cmd), func(ctx context.Context, store *project.Store) error {
			return setPassword(ctx, store, args[0], args[1], projectDescription, value)
		})
	},
}

var projectRenameCmd = &cobra.Command{
	Use:   "rename FROM TO",
	Short: "Rename a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmdContext(cmd), func(ctx context.Context, store *project.Store) error {
			return store.Rename(ctx, args[0], args[1])
		})
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmdContext(cmd), func(ctx context.Context, store *project.Store) error {
			return store.Delete(ctx, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd, projectShowCmd, projectSetPasswordCmd, projectRenameCmd, projectDeleteCmd)
	projectSetPasswordCmd.Flags().StringVar(&projectDescription, "description", "", "Parameter description")
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// withStore opens the configured repository and codec for the duration of fn.
func withStore(ctx context.Context, fn func(ctx context.Context, store *project.Store) error, opts ...secret.CodecOption) error {
	codec, err := loadCodec(opts...)
	if err != nil {
		return err
	}
	repo, closeRepo, err := openRepository(ctx, storePath, postgresDSN)
	if err != nil {
		return err
	}
	defer closeRepo()
	return fn(ctx, project.NewStore(repo, codec, project.WithLogger(logger)))
}

// setPassword loads or creates the project and stores value as the default
// of the named parameter.
func setPassword(ctx context.Context, store *project.Store, name, param, description, value string) error {
	p, err := store.Load(ctx, name)
	if errors.Is(err, project.ErrNotFound) {
		p = &project.Project{Name: name}
	} else if err != nil {
		return err
	}

	if existing := p.Parameter(param); existing != nil {
		existing.DefaultValue = secret.New(value)
		if description != "" {
			existing.Description = description
		}
	} else {
		p.Parameters = append(p.Parameters, project.PasswordParameter{
			Name:         param,
			Description:  description,
			DefaultValue: secret.New(value),
		})
	}
	return store.Save(ctx, p)
}
