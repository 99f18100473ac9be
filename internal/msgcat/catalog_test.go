package msgcat

import (
    "os"
    "path/filepath"
    "strings"
    "testing"
)

func TestEmbeddedDefaults(t *testing.T) {
    c, err := New("", "")
    if err != nil { t.Fatalf("New: %v", err) }
    for _, key := range []string{"common.store_failure", "challenge.duplicate_pending", "friend.already_exists", "command.help"} {
        if !c.Has(key) { t.Fatalf("missing default %s", key) }
    }
    out, err := c.Render("friend.already_exists", map[string]string{"Status": "blocked"})
    if err != nil { t.Fatalf("Render: %v", err) }
    if out != "Relationship already exists with status: blocked" { t.Fatalf("got %q", out) }

    help, err := c.Render("command.help", map[string]any{"Prefix": "!"})
    if err != nil { t.Fatalf("Render help: %v", err) }
    if !strings.Contains(help, "!friend search <query>") { t.Fatalf("help = %q", help) }
}

func TestMissingDataFallsBack(t *testing.T) {
    c, err := New("", "")
    if err != nil { t.Fatalf("New: %v", err) }
    if _, err := c.Render("friend.already_exists", map[string]string{}); err == nil {
        t.Fatalf("expected missing key error")
    }
    if got := c.Text("friend.already_exists", map[string]string{}, "fallback"); got != "fallback" { t.Fatalf("got %q", got) }
    if got := c.Text("no.such.key", nil, "fallback"); got != "fallback" { t.Fatalf("got %q", got) }

    var nilCat *Catalog
    if got := nilCat.Text("common.store_failure", nil, "fb"); got != "fb" { t.Fatalf("nil catalog: %q", got) }
}

func TestOverrideDir(t *testing.T) {
    dir := t.TempDir()
    write := func(name, body string) {
        if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil { t.Fatalf("write: %v", err) }
    }
    write("a.yaml", "challenge:\n  expired: \"만료된 도전입니다\"\n")
    write("notes.txt", "ignored: true\n")

    c, err := New("en", dir)
    if err != nil { t.Fatalf("New: %v", err) }
    if got := c.Text("challenge.expired", nil, ""); got != "만료된 도전입니다" { t.Fatalf("override = %q", got) }
    if got := c.Text("challenge.not_found", nil, ""); got != "Challenge not found or expired" { t.Fatalf("default lost: %q", got) }

    write("b.yml", "challenge:\n  expired: \"again\"\n")
    if _, err := New("en", dir); err == nil { t.Fatalf("expected duplicate override error") }

    if _, err := New("en", filepath.Join(dir, "missing")); err == nil { t.Fatalf("expected error for missing dir") }
}

func TestRejectsNonStringLeaves(t *testing.T) {
    if _, err := parseYAMLToFlat([]byte("a:\n  b: 3\n")); err == nil { t.Fatalf("expected error for int leaf") }
}

func TestKoreanLocaleLayersOnEnglish(t *testing.T) {
    c, err := New("KO", "")
    if err != nil { t.Fatalf("New: %v", err) }
    if c.Locale() != "ko" { t.Fatalf("locale = %q", c.Locale()) }
    if got := c.Text("challenge.expired", nil, ""); got != "만료된 도전입니다" { t.Fatalf("ko = %q", got) }
    // Keys without a Korean entry keep the English text.
    if got := c.Text("command.challenge_updated", map[string]string{"Message": "m", "ID": "c1", "Status": "accepted"}, ""); got != "✅ m (c1: accepted)" {
        t.Fatalf("fallback = %q", got)
    }
    out, err := c.Render("friend.already_exists", map[string]string{"Status": "blocked"})
    if err != nil || !strings.Contains(out, "blocked") { t.Fatalf("render = %q, %v", out, err) }
}

func TestUnknownLocale(t *testing.T) {
    if _, err := New("xx", ""); err == nil { t.Fatalf("expected error for unknown locale") }
}

func TestBadTemplateLeavesCatalogUntouched(t *testing.T) {
    c, err := New("", "")
    if err != nil { t.Fatalf("New: %v", err) }
    err = c.install(map[string]string{"challenge.expired": "ok", "challenge.self": "{{.Broken"}, "bad.yaml")
    if err == nil { t.Fatalf("expected parse error") }
    if got := c.Text("challenge.expired", nil, ""); got != "Challenge has expired" { t.Fatalf("partially applied: %q", got) }
}
