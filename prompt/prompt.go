// Package prompt loads prompt templates and fills in their {{KEY}}
// placeholders. Templates may pull in other files with
// {{include:relative/path.md}}.
package prompt

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/bcspragu/Switchboard"
)

// ErrMissingPlaceholder is returned when a template uses a placeholder that
// the caller didn't provide.
var ErrMissingPlaceholder = errors.New("prompt: missing placeholder")

// Template IDs.
const (
	RedCoach   = "red_coach"
	BlueCoach  = "blue_coach"
	RedPlayer  = "red_player"
	BluePlayer = "blue_player"
	Referee    = "referee"
)

// CoachID and PlayerID return the template ID for the team's role.
func CoachID(t switchboard.Team) string  { return t.String() + "_coach" }
func PlayerID(t switchboard.Team) string { return t.String() + "_player" }

//go:embed defaults/*.md
var defaults embed.FS

var (
	placeholderRE = regexp.MustCompile(`\{\{([A-Z_]+)\}\}`)
	includeRE     = regexp.MustCompile(`\{\{include:([^}]+)\}\}`)
)

// Context holds placeholder values, keyed by placeholder name. Keys are
// matched case-insensitively.
type Context map[string]any

// Renderer renders templates by ID. Each ID maps to a file; IDs without a file,
// or whose file doesn't exist, use the built-in template for their role.
type Renderer struct {
	files map[string]string
	log   *zap.SugaredLogger
}

func New(files map[string]string, log *zap.SugaredLogger) *Renderer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	fs := make(map[string]string, len(files))
	for id, path := range files {
		fs[id] = path
	}
	return &Renderer{files: fs, log: log}
}

// Source describes where the template for id comes from, for logs.
func (r *Renderer) Source(id string) string {
	if p := r.files[id]; p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "default"
}

// Sources describes every configured template, keyed by ID.
func (r *Renderer) Sources() map[string]string {
	out := make(map[string]string)
	for _, id := range []string{RedCoach, BlueCoach, RedPlayer, BluePlayer, Referee} {
		out[id] = r.Source(id)
	}
	return out
}

// Render loads the template for id and fills it in from ctx.
func (r *Renderer) Render(id string, ctx Context) (string, error) {
	tmpl, err := r.load(id)
	if err != nil {
		return "", err
	}
	out, err := Fill(tmpl, ctx)
	if err != nil {
		return "", fmt.Errorf("failed to render %q: %w", id, err)
	}
	return out, nil
}

func (r *Renderer) load(id string) (string, error) {
	path := r.files[id]
	if path == "" {
		return defaultTemplate(id)
	}

	dat, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		r.log.Warnw("prompt file not found, using default", "template", id, "path", path)
		return defaultTemplate(id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read prompt %q: %w", path, err)
	}
	return r.expandIncludes(string(dat), filepath.Dir(path)), nil
}

func (r *Renderer) expandIncludes(tmpl, dir string) string {
	return includeRE.ReplaceAllStringFunc(tmpl, func(m string) string {
		rel := strings.TrimSpace(includeRE.FindStringSubmatch(m)[1])
		dat, err := os.ReadFile(filepath.Join(dir, rel))
		if err != nil {
			r.log.Warnw("failed to load prompt include", "include", rel, "error", err)
			return fmt.Sprintf("<!-- Include not found: %s -->", rel)
		}
		return string(dat)
	})
}

func defaultTemplate(id string) (string, error) {
	role := "coach"
	switch {
	case strings.HasSuffix(id, "player"):
		role = "player"
	case strings.HasSuffix(id, "referee"):
		role = "referee"
	}
	dat, err := defaults.ReadFile("defaults/" + role + ".md")
	if err != nil {
		return "", fmt.Errorf("no default prompt for %q: %w", id, err)
	}
	return string(dat), nil
}

// Fill replaces every {{KEY}} in tmpl with its value from ctx. Any
// placeholder left without a value is an error.
func Fill(tmpl string, ctx Context) (string, error) {
	vals := make(map[string]any, len(ctx))
	for k, v := range ctx {
		vals[strings.ToUpper(k)] = v
	}

	missing := make(map[string]bool)
	out := placeholderRE.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := placeholderRE.FindStringSubmatch(m)[1]
		v, ok := vals[key]
		if !ok {
			missing[key] = true
			return m
		}
		return format(key, v)
	})

	if len(missing) > 0 {
		var keys []string
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("%w: %s", ErrMissingPlaceholder, strings.Join(keys, ", "))
	}
	return out, nil
}

func format(key string, v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []string:
		if key == "BOARD" {
			return Grid(v, nil)
		}
		return List(v)
	case map[string]bool:
		var names []string
		for name, ok := range v {
			if ok {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		return List(names)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}

// List joins words with commas, or says "None".
func List(words []string) string {
	if len(words) == 0 {
		return "None"
	}
	return strings.Join(words, ", ")
}

// Grid lays a full board out in rows, marking revealed words with brackets.
// Anything that isn't a full board is listed instead.
func Grid(words []string, revealed map[string]bool) string {
	if len(words) != switchboard.Size {
		return strings.Join(words, ", ")
	}
	var rows []string
	for r := 0; r < switchboard.Rows; r++ {
		var cells []string
		for _, w := range words[r*switchboard.Columns : (r+1)*switchboard.Columns] {
			if revealed[w] {
				w = "[" + w + "]"
			}
			cells = append(cells, fmt.Sprintf("%12s", w))
		}
		rows = append(rows, strings.Join(cells, " | "))
	}
	return strings.Join(rows, "\n")
}
