package configuration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// DotEnv is a .env file. Keys follow the environment variable rules: '__'
// separates hierarchy levels.
type DotEnv struct {
	Path     string
	Optional bool
}

func (d DotEnv) Name() string {
	if d.Path == "" {
		return "dotenv:.env"
	}
	return "dotenv:" + filepath.Base(d.Path)
}

func (d DotEnv) Build(basePath string) (Provider, error) {
	path := d.Path
	if path == "" {
		path = ".env"
	}
	if !filepath.IsAbs(path) && basePath != "" {
		path = filepath.Join(basePath, path)
	}

	return NewMapProvider(func(ctx context.Context, data *Map) error {
		if _, err := os.Stat(path); err != nil {
			if d.Optional && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("failed to stat env file %s: %w", path, err)
		}

		values, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("failed to parse env file %s: %w", path, err)
		}

		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			data.Set(envKey(k), values[k])
		}
		return nil
	}), nil
}

func envKey(name string) string {
	return strings.ReplaceAll(name, "__", ":")
}
