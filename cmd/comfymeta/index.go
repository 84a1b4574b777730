package main

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/comfygallery/comfymeta/metacache"
	"github.com/comfygallery/comfymeta/searchindex"
	"github.com/comfygallery/comfymeta/worker"
)

var (
	flagIndexGlobs   []string
	flagIndexExclude []string
	flagIndexJournal string
	flagIndexForce   bool
	flagIndexWorkers int
)

var indexCmd = &cobra.Command{
	Use:   "index <directory>",
	Short: "Extract and persist metadata for every image under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		extractor, err := newExtractor()
		if err != nil {
			return err
		}

		journal := flagIndexJournal
		if journal == "" {
			journal = filepath.Join(root, ".comfymeta.jsonl")
		}
		store, err := metacache.Open(journal)
		if err != nil {
			return err
		}
		defer store.Close()

		paths, err := collectImages(root, flagIndexGlobs, flagIndexExclude)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no matching files")
			return nil
		}

		manager := worker.NewManager(extractor, store, searchindex.New(), flagIndexWorkers)

		bar := progressbar.Default(int64(len(paths)), "indexing")
		var (
			done    sync.WaitGroup
			mu      sync.Mutex
			failed  int
			skipped int
		)
		done.Add(len(paths))
		manager.RegisterListener(func(r worker.Result) {
			mu.Lock()
			if !r.Success {
				failed++
			} else if len(r.Fields) == 0 {
				skipped++
			}
			mu.Unlock()
			bar.Add(1)
			done.Done()
		})
		manager.Start()

		for _, p := range paths {
			rel, err := filepath.Rel(root, p)
			if err != nil {
				rel = p
			}
			for !manager.QueueIndex(p, rel, flagIndexForce) {
				time.Sleep(50 * time.Millisecond)
			}
		}
		done.Wait()
		manager.Shutdown()

		if err := store.Compact(); err != nil {
			return fmt.Errorf("compact journal: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\nindexed %d files (%d without metadata, %d failed), journal %s\n",
			len(paths)-failed, skipped, failed, journal)
		return nil
	},
}

// collectImages walks root once and matches relative paths against the
// include and exclude globs.
func collectImages(root string, globs, exclude []string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, pat := range exclude {
			if ok, _ := doublestar.Match(pat, rel); ok {
				return nil
			}
		}
		for _, pat := range globs {
			if ok, _ := doublestar.Match(pat, rel); ok {
				out = append(out, path)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func init() {
	indexCmd.Flags().StringSliceVar(&flagIndexGlobs, "glob", []string{"**/*.png"}, "Include patterns, relative to the directory")
	indexCmd.Flags().StringSliceVar(&flagIndexExclude, "exclude", nil, "Exclude patterns")
	indexCmd.Flags().StringVar(&flagIndexJournal, "journal", "", "Journal path (default <directory>/.comfymeta.jsonl)")
	indexCmd.Flags().BoolVar(&flagIndexForce, "force", false, "Re-extract even when the journal entry is still valid")
	indexCmd.Flags().IntVar(&flagIndexWorkers, "workers", runtime.NumCPU(), "Number of extraction workers")
	rootCmd.AddCommand(indexCmd)
}
