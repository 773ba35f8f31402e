package help

import (
	"strings"
	"testing"

	"github.com/nhle/deletion-planner/internal/keys"
)

func titles(m Model) []string {
	var out []string
	for _, s := range m.Sections() {
		out = append(out, s.Title)
	}
	return out
}

func TestCurrentSectionComesFirst(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 60)

	m.SetCurrent("Suggestions")
	got := titles(m)
	want := []string{"Suggestions", "General", "Tasks", "Today's plan"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("sections = %v, want %v", got, want)
	}

	m.SetCurrent("unknown")
	if got := titles(m); got[0] != "General" {
		t.Errorf("unknown current reordered sections: %v", got)
	}
}

func TestViewListsEveryBinding(t *testing.T) {
	k := keys.DefaultKeyMap()
	m := New(k, 100, 80)
	m.SetCurrent("Tasks")
	view := m.View()

	for _, s := range k.Sections() {
		if !strings.Contains(view, s.Title) {
			t.Errorf("view missing section %q", s.Title)
		}
		for _, b := range s.Bindings {
			if desc := b.Help().Desc; !strings.Contains(view, desc) {
				t.Errorf("view missing %q", desc)
			}
		}
	}
}
