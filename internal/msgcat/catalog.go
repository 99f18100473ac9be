package msgcat

import (
    "embed"
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "sync"
    "text/template"

    yaml "gopkg.in/yaml.v3"
)

//go:embed messages.*.yaml
var builtin embed.FS

// DefaultLocale is always loaded first; other locales layer on top of it.
const DefaultLocale = "en"

// Catalog holds parsed message templates keyed by dotted path
// ("challenge.expired"). Rendering uses missingkey=error.
type Catalog struct {
    mu     sync.RWMutex
    locale string
    tpls   map[string]*template.Template
}

// New builds a catalog for locale from the embedded messages, then applies
// every *.yaml / *.yml file in overrideDir if one is given.
func New(locale, overrideDir string) (*Catalog, error) {
    locale = strings.ToLower(strings.TrimSpace(locale))
    if locale == "" {
        locale = DefaultLocale
    }
    c := &Catalog{locale: locale, tpls: make(map[string]*template.Template)}
    if err := c.applyBuiltin(DefaultLocale); err != nil {
        return nil, err
    }
    if locale != DefaultLocale {
        if err := c.applyBuiltin(locale); err != nil {
            return nil, err
        }
    }
    if strings.TrimSpace(overrideDir) != "" {
        if err := c.applyDir(overrideDir); err != nil {
            return nil, err
        }
    }
    return c, nil
}

// Locale reports the locale the catalog was built for.
func (c *Catalog) Locale() string {
    if c == nil {
        return DefaultLocale
    }
    return c.locale
}

func (c *Catalog) applyBuiltin(locale string) error {
    raw, err := builtin.ReadFile("messages." + locale + ".yaml")
    if err != nil {
        return fmt.Errorf("unknown message locale %q", locale)
    }
    flat, err := parseYAMLToFlat(raw)
    if err != nil {
        return fmt.Errorf("parse %s messages: %w", locale, err)
    }
    return c.install(flat, "messages."+locale+".yaml")
}

// applyDir loads override files in name order. A key defined by two
// override files is an error; overriding a built-in key is the point.
func (c *Catalog) applyDir(dir string) error {
    entries, err := os.ReadDir(dir)
    if err != nil {
        return fmt.Errorf("read template dir: %w", err)
    }
    var files []string
    for _, e := range entries {
        if e.IsDir() { continue }
        switch strings.ToLower(filepath.Ext(e.Name())) {
        case ".yaml", ".yml":
            files = append(files, e.Name())
        }
    }
    sort.Strings(files)

    owner := make(map[string]string)
    for _, name := range files {
        b, err := os.ReadFile(filepath.Join(dir, name))
        if err != nil { return fmt.Errorf("read %s: %w", name, err) }
        flat, err := parseYAMLToFlat(b)
        if err != nil { return fmt.Errorf("parse %s: %w", name, err) }
        for k := range flat {
            if prev, ok := owner[k]; ok {
                return fmt.Errorf("duplicate override key %q in %s and %s", k, prev, name)
            }
            owner[k] = name
        }
        if err := c.install(flat, name); err != nil {
            return err
        }
    }
    return nil
}

// install parses every entry before swapping any in, so a bad file leaves
// the catalog untouched.
func (c *Catalog) install(flat map[string]string, source string) error {
    parsed := make(map[string]*template.Template, len(flat))
    for k, v := range flat {
        if strings.TrimSpace(v) == "" { continue }
        t, err := template.New(k).Option("missingkey=error").Parse(v)
        if err != nil {
            return fmt.Errorf("%s: template %s: %w", source, k, err)
        }
        parsed[k] = t
    }
    c.mu.Lock()
    for k, t := range parsed { c.tpls[k] = t }
    c.mu.Unlock()
    return nil
}

func parseYAMLToFlat(b []byte) (map[string]string, error) {
    var root map[string]any
    if err := yaml.Unmarshal(b, &root); err != nil {
        return nil, err
    }
    flat := make(map[string]string)
    if err := flatten(root, "", flat); err != nil {
        return nil, err
    }
    return flat, nil
}

// flatten accepts nested maps with string leaves only.
func flatten(node any, prefix string, out map[string]string) error {
    switch v := node.(type) {
    case map[string]any:
        for k, child := range v {
            key := k
            if prefix != "" { key = prefix + "." + k }
            if err := flatten(child, key, out); err != nil { return err }
        }
    case string:
        if prefix == "" { return fmt.Errorf("string value without key") }
        out[prefix] = v
    case nil:
    default:
        return fmt.Errorf("unsupported value at %s: %T", prefix, v)
    }
    return nil
}

// Render executes the template for key. Unknown keys and missing data
// fields are errors.
func (c *Catalog) Render(key string, data any) (string, error) {
    c.mu.RLock()
    t, ok := c.tpls[strings.TrimSpace(key)]
    c.mu.RUnlock()
    if !ok {
        return "", fmt.Errorf("template not found: %s", key)
    }
    var b strings.Builder
    if err := t.Execute(&b, data); err != nil { return "", err }
    return b.String(), nil
}

// Has reports whether key has a template.
func (c *Catalog) Has(key string) bool {
    c.mu.RLock()
    defer c.mu.RUnlock()
    _, ok := c.tpls[strings.TrimSpace(key)]
    return ok
}

// Text renders key, falling back to fallback when the key is missing or
// the template fails. A nil catalog always yields fallback.
func (c *Catalog) Text(key string, data any, fallback string) string {
    if c == nil {
        return fallback
    }
    out, err := c.Render(key, data)
    if err != nil {
        return fallback
    }
    return out
}
