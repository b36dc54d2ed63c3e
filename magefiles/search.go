//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Search runs a search with the built binary. Set QUERY to the query text;
// the result is also saved under results/.
func Search() error {
	mg.Deps(Build)
	query := os.Getenv("QUERY")
	if query == "" {
		return fmt.Errorf("set QUERY to the text to search for")
	}
	save := filepath.Join("results", "last.yaml")
	return sh.RunV(filepath.Join(binDir, binName), "search", "--query", query, "--save", save)
}

// Sources checks that every enabled source answers a probe query.
func Sources() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "sources", "check")
}
