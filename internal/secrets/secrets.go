// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of
// plain-text files and from dotenv files. Each file in the directory is one
// secret: the filename is the key name and the trimmed contents the value.
//
// Recognized keys: semantic-scholar-api-key, openalex-email, crossref-email,
// elasticsearch-api-key, sql-dsn.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Store maps secret names to values.
type Store map[string]string

// Load reads all files in dir, then merges KEY=VALUE pairs from envFiles.
// Dotenv keys are lowercased and underscores become dashes, so
// SEMANTIC_SCHOLAR_API_KEY and the file semantic-scholar-api-key name the
// same secret; files in dir win. Missing directories and env files are not
// errors. Unreadable files produce a warning on stderr but do not abort.
func Load(dir string, envFiles ...string) (Store, error) {
	store := Store{}

	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		vals, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("reading env file %s: %w", f, err)
		}
		for k, v := range vals {
			if v = strings.TrimSpace(v); v != "" {
				store[keyName(k)] = v
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			store[name] = value
		}
	}

	return store, nil
}

// Get returns the secret for key, or fallback when it is unset.
func (s Store) Get(key, fallback string) string {
	if v, ok := s[key]; ok {
		return v
	}
	return fallback
}

func keyName(envKey string) string {
	return strings.ReplaceAll(strings.ToLower(envKey), "_", "-")
}
