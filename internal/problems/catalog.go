// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package problems

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hjson/hjson-go/v4"
)

// Catalog is an immutable, in-memory problem set loaded once at
// startup. It is safe for concurrent reads from many goroutines
// because nothing ever mutates it after Load returns.
type Catalog struct {
	byID map[string]Problem
	ids  []string // stable, sorted order for List
}

// Load reads every *.json / *.hjson file directly under dir and
// builds a Catalog. Problem catalogs are hand-maintained, so HJSON
// (comments, trailing commas, unquoted keys) is accepted alongside
// strict JSON — the same two-stage decode the teacher's config loader
// uses: parse HJSON into a generic map, re-marshal to JSON, then
// unmarshal into the typed struct.
func Load(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read problems dir: %w", err)
	}

	c := &Catalog{byID: make(map[string]Problem)}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".json" && ext != ".hjson" {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		var raw map[string]interface{}
		if err := hjson.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		jsonData, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("normalize %s: %w", name, err)
		}

		var p Problem
		if err := json.Unmarshal(jsonData, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		if p.ID == "" {
			return nil, fmt.Errorf("%s: problem id is required", name)
		}
		if _, exists := c.byID[p.ID]; exists {
			return nil, fmt.Errorf("%s: duplicate problem id %q", name, p.ID)
		}
		c.byID[p.ID] = p
	}

	c.ids = make([]string, 0, len(c.byID))
	for id := range c.byID {
		c.ids = append(c.ids, id)
	}
	sort.Strings(c.ids)

	return c, nil
}

// Get returns the problem with the given id, or false if unknown.
func (c *Catalog) Get(id string) (Problem, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Has reports whether id is a known problem (used to validate
// session creation and code submissions against the catalog).
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// List returns summaries for every problem, in stable id order.
func (c *Catalog) List() []Summary {
	out := make([]Summary, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.byID[id].Summary())
	}
	return out
}
