// Package cliutil holds helpers for positional command-line arguments.
package cliutil

import (
	"path/filepath"
	"strings"

	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

func hasGlobMeta(s string) bool { return strings.ContainsAny(s, "*?[") }

// isRemote reports paths that name an object rather than a local file.
func isRemote(s string) bool { return strings.Contains(s, "://") }

// ExpandPositionals expands globs among local path positionals. "-" and
// remote paths pass through untouched.
func ExpandPositionals(posArgs []string) ([]string, error) {
	var out []string
	for _, a := range posArgs {
		if a == "-" || isRemote(a) || !hasGlobMeta(a) {
			out = append(out, a)
			continue
		}
		m, err := filepath.Glob(a)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeConfig, "bad glob %q", a)
		}
		if len(m) == 0 {
			return nil, apperr.Config("no input matched %q", a)
		}
		out = append(out, m...)
	}
	return out, nil
}
