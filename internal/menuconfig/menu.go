// Package menuconfig loads and normalizes the router's menu
// configuration and watches the file for changes (spec.md §3/§6).
// Merging the configured entries with the live source registry into the
// runtime menu is done by internal/registry.
package menuconfig

import (
	"encoding/json"
	"os"

	"github.com/micro-nova/amplipi-go/internal/model"
)

// SearchPath mirrors spec.md §6: sysconfdir, then cwd, then repo default.
func SearchPath(sysconfdir, repoDir string) []string {
	paths := []string{}
	if sysconfdir != "" {
		paths = append(paths, sysconfdir+"/config.json")
	}
	paths = append(paths, "./config.json")
	if repoDir != "" {
		paths = append(paths, repoDir+"/config/default.json")
	}
	return paths
}

// Load reads the first existing file on path and parses it as a Config.
func Load(paths []string) (*model.Config, string, error) {
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, "", err
		}
		var cfg model.Config
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, "", err
		}
		return &cfg, p, nil
	}
	return &model.Config{}, "", nil
}

// Normalize converts the raw JSON menu entries into ConfigEntry values,
// classifying each as a static view, web-page, or source-id entry is left
// to the registry (it knows which ids are registered sources).
func Normalize(raw []model.RawMenuEntry) []model.ConfigEntry {
	out := make([]model.ConfigEntry, 0, len(raw))
	for _, r := range raw {
		out = append(out, model.ConfigEntry{
			Title:  r.Title,
			ID:     r.ID,
			Hidden: r.Hidden,
			URL:    r.URL,
		})
	}
	return out
}
