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
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".hcl")
}

// 📝 Parse parses the config from HCL. Expressions may use config_dir, the
// absolute directory of the file being parsed.
func (p *HCLParser) Parse(ctx context.Context, filename string, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	dir, err := filepath.Abs(filepath.Dir(filename))
	if err != nil {
		return nil, errors.Errorf("getting config directory: %w", err)
	}

	// Create evaluation context
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"config_dir": cty.StringVal(dir),
		},
	}

	// Define HCL schema
	type hclConfig struct {
		Rule struct {
			Pattern         string `hcl:"pattern"`
			Replacement     string `hcl:"replacement,optional"`
			ReplacementFile string `hcl:"replacement_file,optional"`
			Syntax          string `hcl:"syntax,optional"`
		} `hcl:"rule,block"`
		Targets     []string `hcl:"targets,optional"`
		Ignore      []string `hcl:"ignore,optional"`
		FailOnError bool     `hcl:"fail_on_error,optional"`
		Async       bool     `hcl:"async,optional"`
		Concurrency int      `hcl:"concurrency,optional"`
	}

	// Decode HCL
	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Convert to model
	return &Config{
		Rule: Rule{
			Pattern:         hclCfg.Rule.Pattern,
			Replacement:     hclCfg.Rule.Replacement,
			ReplacementFile: hclCfg.Rule.ReplacementFile,
			Syntax:          hclCfg.Rule.Syntax,
		},
		Targets:     hclCfg.Targets,
		Ignore:      hclCfg.Ignore,
		FailOnError: hclCfg.FailOnError,
		Async:       hclCfg.Async,
		Concurrency: hclCfg.Concurrency,
	}, nil
}
