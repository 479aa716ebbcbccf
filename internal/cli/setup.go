package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/roach88/replyguard/internal/config"
	"github.com/roach88/replyguard/internal/dedup"
	"github.com/roach88/replyguard/internal/denylist"
)

// getenv is swapped in tests.
var getenv = os.Getenv

// loadConfig reads the config file named by --config. A missing default
// file is not an error; flags and environment can supply everything.
func loadConfig(opts *RootOptions, explicit bool) (*config.Config, error) {
	path := opts.Config
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	return config.LoadWithEnv(path, getenv)
}

// startupWarning is a problem the operator may choose to run through.
type startupWarning struct {
	Source      string `json:"source"`
	Path        string `json:"path"`
	Problem     string `json:"problem"`
	Consequence string `json:"consequence"`
}

// inputs are the files loaded before the pipeline starts.
type inputs struct {
	Sets     denylist.Sets
	Store    *dedup.Store
	Warnings []startupWarning
}

// loadInputs loads the denylists and the dedup log. A missing or unreadable
// dedup log is a warning and yields an empty store that creates the file on
// first append.
func loadInputs(cfg *config.Config, storeOpts ...dedup.Option) *inputs {
	sets, warns := denylist.LoadAll(denylist.Paths{
		Origins: cfg.Denylist.Origins,
		Authors: cfg.Denylist.Authors,
		Terms:   cfg.Denylist.Terms,
	})

	in := &inputs{Sets: sets}
	for _, w := range warns {
		in.Warnings = append(in.Warnings, startupWarning{
			Source:      string(w.Category),
			Path:        w.Path,
			Problem:     fmt.Sprintf("%s denylist unavailable: %v", w.Category, w.Err),
			Consequence: w.Consequence(),
		})
	}

	store, err := dedup.Open(cfg.Dedup.Path, storeOpts...)
	if err != nil {
		problem := "replied-ids log not found"
		if !errors.Is(err, os.ErrNotExist) {
			problem = fmt.Sprintf("replied-ids log unreadable: %v", err)
		}
		in.Warnings = append(in.Warnings, startupWarning{
			Source:      "dedup",
			Path:        cfg.Dedup.Path,
			Problem:     problem,
			Consequence: "comments answered by earlier runs may be answered again",
		})
		store = dedup.New(cfg.Dedup.Path, storeOpts...)
	}
	in.Store = store
	return in
}

// printWarnings writes one block per warning.
func printWarnings(w io.Writer, warnings []startupWarning) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "Warning: %s (%s): %s\n", warn.Source, warn.Path, warn.Problem)
		fmt.Fprintf(w, "  If you continue, %s.\n", warn.Consequence)
	}
}
