package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/repopulse/repopulse/pkg/diffcache"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the diff stat cache",
	}

	cmd.AddCommand(newCacheInfoCommand())
	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheInfoCommand() *cobra.Command {
	var flags repoFlags

	cmd := &cobra.Command{
		Use:           "info",
		Short:         "Show cache location, entry count, and size for a repository",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := openFlagStore(&flags)
			if err != nil {
				return err
			}

			defer func() { _ = store.Close() }()

			fmt.Printf("path:    %s\n", store.Path())
			fmt.Printf("entries: %s\n", humanize.Comma(int64(store.Len())))

			info, statErr := os.Stat(store.Path())
			if statErr == nil {
				fmt.Printf("size:    %s\n", humanize.Bytes(uint64(info.Size())))
			} else {
				fmt.Println("size:    (not yet written)")
			}

			return nil
		},
	}

	addRepoFlags(cmd, &flags)

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	var flags repoFlags

	cmd := &cobra.Command{
		Use:           "clear",
		Short:         "Delete the cached diff stats for a repository",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := openFlagStore(&flags)
			if err != nil {
				return err
			}

			entries := store.Len()

			err = store.Clear()
			if err != nil {
				return err
			}

			fmt.Printf("cleared %s entries\n", humanize.Comma(int64(entries)))

			return nil
		},
	}

	addRepoFlags(cmd, &flags)

	return cmd
}

// openFlagStore opens the diff cache identified by the repository flags
// without touching the repository itself.
func openFlagStore(flags *repoFlags) (*diffcache.Store, error) {
	cfg, err := flags.resolveConfig()
	if err != nil {
		return nil, err
	}

	vcsName := cfg.Repo.VCS
	if vcsName == "" {
		vcsName = "git"
	}

	return diffcache.Open(cfg.Cache.Dir, vcsName, cfg.Repo.URL, cacheCodec(cfg.Cache.Codec))
}
