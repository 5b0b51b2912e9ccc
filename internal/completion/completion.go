// Package completion generates the bash completion script that lets
// `pwdy get <TAB>` complete credential identities.
//
// The script lists identities in plain text, so it is written with the same
// 0600 permissions as the store.
package completion

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
)

//go:embed completion.bash.tmpl
var scriptTemplate string

var script = template.Must(template.New("completion").Funcs(template.FuncMap{
	"join":  strings.Join,
	"quote": quote,
}).Parse(scriptTemplate))

// Data is what the script is rendered from.
type Data struct {
	Commands   []string
	Identities []string
}

// Render writes the completion script to w. Commands and identities are
// emitted sorted.
func Render(w io.Writer, d Data) error {
	d.Commands = sorted(d.Commands)
	d.Identities = sorted(d.Identities)
	if err := script.Execute(w, d); err != nil {
		return fmt.Errorf("rendering completion script: %w", err)
	}
	return nil
}

// Write renders the script to path, replacing any previous file atomically.
func Write(path string, d Data) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating completion dir: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := Render(f, d); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing completion script: %w", err)
	}
	return nil
}

// quote wraps s in single quotes so the shell never expands it.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
