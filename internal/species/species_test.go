package species

import (
	"os"
	"path/filepath"
	"testing"
)

func testDictionary() *Dictionary {
	return New(map[int]string{
		19:  "Rattata",
		25:  "pikachu",
		41:  "zubat",
		122: "mr. mime",
		439: "mime jr.",
		901: "abcd1",
		902: "abcd2",
	})
}

func TestNewNormalisesNames(t *testing.T) {
	d := testDictionary()

	if id, ok := d.ID("rattata"); !ok || id != 19 {
		t.Errorf("ID(rattata) = (%d, %v), want (19, true)", id, ok)
	}
	if name, ok := d.Name(19); !ok || name != "rattata" {
		t.Errorf("Name(19) = (%q, %v), want rattata", name, ok)
	}
	if d.Len() != 7 {
		t.Errorf("Len() = %d, want 7", d.Len())
	}
}

func TestEntriesOrderedByID(t *testing.T) {
	entries := testDictionary().Entries()
	for i := 1; i < len(entries); i++ {
		if entries[i-1].ID >= entries[i].ID {
			t.Fatalf("entries out of order at %d: %v", i, entries)
		}
	}
}

func TestResolve(t *testing.T) {
	d := testDictionary()
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"exact", "pikachu", 25},
		{"exact with infix", "mr. mime", 122},
		{"exact with suffix", "mime jr.", 439},
		{"one typo", "pikachv", 25},
		{"dropped letter", "zubt", 41},
		{"below cutoff", "pikaxxx", 0},
		{"tie at best score", "abcdx", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Resolve(tt.input, DefaultCutoff); got != tt.want {
				t.Errorf("Resolve(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolveCutoffIsConfigurable(t *testing.T) {
	d := testDictionary()

	if got := d.Resolve("pikaxxx", 0.5); got != 25 {
		t.Errorf("Resolve with cutoff 0.5 = %d, want 25", got)
	}
	if got := d.Resolve("pikachv", 0.9); got != 0 {
		t.Errorf("Resolve with cutoff 0.9 = %d, want 0", got)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"zubat", "zubat", 1},
		{"", "", 1},
		{"abcd", "abce", 0.75},
		{"zubat", "", 0},
	}
	for _, tt := range tests {
		if got := Similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monster_names.json")
	if err := os.WriteFile(path, []byte(`{"25": "Pikachu", "41": "zubat"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if id, _ := d.ID("pikachu"); id != 25 {
		t.Errorf("ID(pikachu) = %d, want 25", id)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	badID := filepath.Join(dir, "bad_id.json")
	_ = os.WriteFile(badID, []byte(`{"twenty": "pikachu"}`), 0o644)
	badJSON := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(badJSON, []byte(`[1,2`), 0o644)

	for _, path := range []string{badID, badJSON, filepath.Join(dir, "missing.json")} {
		if _, err := Load(path); err == nil {
			t.Errorf("Load(%s) should fail", filepath.Base(path))
		}
	}
}
