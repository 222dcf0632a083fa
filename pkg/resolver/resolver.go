// Copyright 2025 Kadir Pekel
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

// Package resolver implements the engine's two-tier lookup for named
// workflow/agent/prompt definitions: a project override root checked
// first, then a builtin fallback root. Resolved paths are canonicalized
// and checked against both permitted roots to defeat directory
// traversal, including traversal attempted through a symlink.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind identifies which definition directory/extension to use.
type Kind string

const (
	KindWorkflows Kind = "workflows"
	KindAgents    Kind = "agents"
	KindPrompts   Kind = "prompts"
)

// extension returns the file extension used for documents of this kind.
func (k Kind) extension() (string, error) {
	switch k {
	case KindWorkflows:
		return ".yaml", nil
	case KindAgents, KindPrompts:
		return ".md", nil
	default:
		return "", fmt.Errorf("resolver: unknown kind %q", k)
	}
}

// Source identifies which root a definition was resolved from.
type Source string

const (
	SourceProject Source = "project"
	SourceBuiltin Source = "builtin"
)

// Resolved is the result of a successful lookup.
type Resolved struct {
	Path   string
	Source Source
}

// Resolver performs the two-tier project-then-builtin lookup.
type Resolver struct {
	projectRoot string
	builtinRoot string
}

// New creates a Resolver rooted at the given project and builtin
// directories. projectRoot is typically "{projectRoot}/.wrangler" and
// builtinRoot the plugin's own definitions directory; both are
// canonicalized eagerly so later traversal checks are cheap.
func New(projectRoot, builtinRoot string) (*Resolver, error) {
	pr, err := canonicalizeRoot(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolver: invalid project root: %w", err)
	}
	br, err := canonicalizeRoot(builtinRoot)
	if err != nil {
		return nil, fmt.Errorf("resolver: invalid builtin root: %w", err)
	}
	return &Resolver{projectRoot: pr, builtinRoot: br}, nil
}

// canonicalizeRoot makes a root absolute, but tolerates roots that
// don't exist yet (a project may have no .wrangler directory at all -
// that's a miss on the project tier, not a configuration error).
func canonicalizeRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// Resolve looks up name under kind, checking the project root first
// and the builtin root second. If neither candidate exists, the error
// lists both paths that were tried.
func (r *Resolver) Resolve(kind Kind, name string) (*Resolved, error) {
	ext, err := kind.extension()
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("resolver: name is required")
	}

	relPath := filepath.Join(string(kind), name+ext)
	projectCandidate := filepath.Join(r.projectRoot, relPath)
	builtinCandidate := filepath.Join(r.builtinRoot, relPath)

	if resolved, err := r.tryResolve(projectCandidate, r.projectRoot, SourceProject); err == nil {
		return resolved, nil
	}
	if resolved, err := r.tryResolve(builtinCandidate, r.builtinRoot, SourceBuiltin); err == nil {
		return resolved, nil
	}

	return nil, fmt.Errorf(
		"resolver: %q not found for kind %q; tried %s and %s",
		name, kind, projectCandidate, builtinCandidate,
	)
}

// tryResolve stats the candidate, canonicalizes it, and verifies it
// still lives under root after symlink resolution.
func (r *Resolver) tryResolve(candidate, root string, source Source) (*Resolved, error) {
	if _, err := os.Stat(candidate); err != nil {
		return nil, err
	}

	canonical, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return nil, fmt.Errorf("resolver: failed to canonicalize %s: %w", candidate, err)
	}

	if !isUnderRoot(canonical, root) {
		return nil, fmt.Errorf("resolver: %s escapes permitted root %s", candidate, root)
	}

	return &Resolved{Path: canonical, Source: source}, nil
}

// SafeJoin resolves rel against root and verifies the canonicalized
// result still lives under root, defeating traversal via ".." or a
// symlink. Used for single-root checks outside the two-tier lookup -
// notably legacy agent steps, whose `agent` field is a literal file
// path relative to the workflow's own base directory rather than a
// resolver name (spec §3 invariants).
func SafeJoin(root, rel string) (string, error) {
	canonicalRoot, err := canonicalizeRoot(root)
	if err != nil {
		return "", fmt.Errorf("resolver: invalid root: %w", err)
	}

	candidate := filepath.Join(canonicalRoot, rel)
	canonical, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		return "", fmt.Errorf("resolver: failed to canonicalize %s: %w", candidate, err)
	}
	if !isUnderRoot(canonical, canonicalRoot) {
		return "", fmt.Errorf("resolver: %s escapes permitted root %s", candidate, canonicalRoot)
	}
	return canonical, nil
}

// isUnderRoot reports whether path is root itself or a descendant of
// it, after both have been made absolute/canonical by the caller.
func isUnderRoot(path, root string) bool {
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
