// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultNames are the patch file names Discover looks for, in order
var DefaultNames = []string{".patchrc.yaml", ".patchrc.yml", ".patchrc.json", ".patchrc.hcl", ".patchrc"}

// LoadConfig loads a patch file from the given path.
// The format is determined by the file extension:
// - .json for JSON
// - .yaml or .yml for YAML
// - .hcl for HCL
// - .patchrc will try both YAML and HCL formats
func LoadConfig(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	var cfg *Config
	if isBareName(path) {
		// Try YAML first
		cfg, err = (&YAMLParser{}).Parse(ctx, path, data)
		if err != nil {
			var hclErr error
			cfg, hclErr = (&HCLParser{}).Parse(ctx, path, data)
			if hclErr != nil {
				return nil, errors.Errorf("failed to parse %s as YAML (%v) or HCL: %w", path, err, hclErr)
			}
		}
	} else {
		p := GetParser(path)
		if p == nil {
			return nil, errors.Errorf("unsupported file extension %q", filepath.Ext(path))
		}
		cfg, err = p.Parse(ctx, path, data)
		if err != nil {
			return nil, err
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Errorf("getting absolute config path: %w", err)
	}
	cfg.location = abs

	if err := cfg.Validate(ctx); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Discover returns the first of DefaultNames present in dir, or "" if none is
func Discover(dir string) string {
	for _, name := range DefaultNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

func isBareName(path string) bool {
	base := filepath.Base(path)
	return base == ".patchrc" || strings.EqualFold(filepath.Ext(base), ".patchrc")
}
