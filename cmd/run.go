package cmd

import (
	"github.com/spf13/cobra"

	"gooze.dev/pkg/orbit/internal/storage"
)

const runLongDescription = `Initialize a session and execute it in one step.

WARNING: run always re-initializes the session, so every result it already
holds is discarded. Use exec to resume an interrupted session.

` + sessionArgsHelp

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <session> [patterns...] [-- test-args...]",
		Short: "Initialize and execute a session (discards previous results)",
		Long:  runLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sa, err := parseSessionArgs(cmd, args)
			if err != nil {
				return err
			}

			initArgs, err := prepareSession(cmd, sa)
			if err != nil {
				return err
			}

			return withWorkDB(cmd.Context(), sa.session, storage.ModeCreate, func(db storage.WorkDB) error {
				if _, err := initializeSession(cmd, db, sa.session, initArgs); err != nil {
					return err
				}

				return executeSession(cmd, db)
			})
		},
	}

	configureInitFlags(cmd)
	configureExecFlags(cmd)

	return cmd
}
