package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"chatterbot/internal/storage"
)

// export only needs storage settings, so it skips config.Load and its
// token checks.
func newExportCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "export [user-id]",
		Short: "Print a user's stored chats as JSON, or list stored users",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.Open(v.GetString("storage.driver"), v.GetString("storage.path"))
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				users, err := store.Users(cmd.Context())
				if err != nil {
					return err
				}
				for _, id := range users {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			}
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad user id %q", args[0])
			}
			m, err := store.Load(cmd.Context(), userID)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(m, "", "  ")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
