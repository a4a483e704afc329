/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Queries holds one JQL query per work-product category.
type Queries struct {
	Defects            string `yaml:"wp_defects"`
	Open               string `yaml:"wp_open"`
	ChangeRequests     string `yaml:"wp_cr"`
	ProblemReports     string `yaml:"wp_pr"`
	PreCCBNotAnalysed  string `yaml:"wp_preccb_not_analysed"`
	PostCCBNotAnalysed string `yaml:"wp_postccb_not_analysed"`
}

type queriesFile struct {
	JiraQueries Queries `yaml:"jira_queries"`
}

func (q Queries) Validate() error {
	var missing []string
	for key, v := range map[string]string{
		"wp_defects":              q.Defects,
		"wp_open":                 q.Open,
		"wp_cr":                   q.ChangeRequests,
		"wp_pr":                   q.ProblemReports,
		"wp_preccb_not_analysed":  q.PreCCBNotAnalysed,
		"wp_postccb_not_analysed": q.PostCCBNotAnalysed,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("jira_queries: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func ParseQueries(data []byte) (Queries, error) {
	var f queriesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Queries{}, fmt.Errorf("parse queries: %w", err)
	}
	if err := f.JiraQueries.Validate(); err != nil {
		return Queries{}, err
	}
	return f.JiraQueries, nil
}

// LoadQueries reads the category queries file into cfg.JiraQueries.
func (cfg *Config) LoadQueries() error {
	data, err := os.ReadFile(cfg.JiraQueriesFile)
	if err != nil {
		return fmt.Errorf("read queries file: %w", err)
	}
	q, err := ParseQueries(data)
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.JiraQueriesFile, err)
	}
	cfg.JiraQueries = q
	return nil
}
