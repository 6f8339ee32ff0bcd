package main

import (
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/reticula/internal/config"
)

// newCacheCmd represents the cache command
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune the result cache",
		Long: `Lists, shows and removes entries of the configured result cache
(cache.backend in the config file or --cache). The memory backend lives only
inside a running process and is empty here.`,
	}
	cmd.AddCommand(newCacheListCmd(), newCacheShowCmd(), newCacheRmCmd())
	return cmd
}

func openConfiguredCache(cmd *cobra.Command) (*cacheStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, err := openCache(cfg, newLogger(cfg))
	if err != nil {
		return nil, err
	}
	if store.cache == nil {
		return nil, errors.New("no cache backend configured")
	}
	if cfg.Cache.Backend == config.BackendMemory {
		return nil, errors.New("the memory cache is not shared between processes")
	}
	return store, nil
}

func newCacheListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached networks",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openConfiguredCache(cmd)
			if err != nil {
				return err
			}
			defer store.close()

			ctx := cmd.Context()
			keys, err := store.cache.List(ctx)
			if err != nil {
				return err
			}
			sort.Strings(keys)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tCREATED\tTREES\tTAXA\tRETICULATIONS")
			for _, key := range keys {
				res, err := store.cache.Get(ctx, key)
				if err != nil {
					// Expired between List and Get.
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", key, res.CreatedAt.Format(time.RFC3339), res.Trees, res.Taxa, res.Reticulations)
			}
			return w.Flush()
		},
	}
}

func newCacheShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show KEY",
		Short: "Print the network cached under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openConfiguredCache(cmd)
			if err != nil {
				return err
			}
			defer store.close()

			res, err := store.cache.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("cache entry %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Newick)
			return nil
		},
	}
}

func newCacheRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm [KEY...]",
		Short: "Remove cached networks",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if !all && len(args) == 0 {
				return errors.New("name at least one key, or pass --all")
			}
			store, err := openConfiguredCache(cmd)
			if err != nil {
				return err
			}
			defer store.close()

			ctx := cmd.Context()
			keys := args
			if all {
				if keys, err = store.cache.List(ctx); err != nil {
					return err
				}
			}
			for _, key := range keys {
				if err := store.cache.Delete(ctx, key); err != nil {
					return fmt.Errorf("failed to delete %s: %w", key, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", len(keys))
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "Remove every entry")
	return cmd
}
