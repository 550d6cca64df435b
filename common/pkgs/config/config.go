package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLoad reads <name>.config.json for a component. The file is looked up
// in the path given by the CONFIG_PATH environment variable first, then in
// ./confs, then in the working directory.
func DefaultLoad(name string, cfg any) error {
	fileName := name + ".config.json"

	var candidates []string
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		candidates = append(candidates, filepath.Join(env, fileName))
	}
	candidates = append(candidates,
		filepath.Join("confs", fileName),
		fileName,
	)

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("reading config file %s: %w", path, err)
		}

		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing config file %s: %w", path, err)
		}
		return nil
	}

	return fmt.Errorf("config file %s not found", fileName)
}
