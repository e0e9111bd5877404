package types

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestOrderedMap_YAMLKeepsOrder(t *testing.T) {
	var m OrderedMap[string]
	src := "zeta: Z\nalpha: A\nmid: M\n"
	if err := yaml.Unmarshal([]byte(src), &m); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}

	keys := m.Keys()
	want := []string{"zeta", "alpha", "mid"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %v, want %v", i, keys[i], want[i])
		}
	}
	if v, ok := m.Get("alpha"); !ok || v != "A" {
		t.Errorf("Get(alpha) = %v, %v, want A, true", v, ok)
	}

	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if string(out) != `{"zeta":"Z","alpha":"A","mid":"M"}` {
		t.Errorf("json.Marshal() = %s, want declaration order", out)
	}
}

func TestOrderedMap_YAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"sequence", "- a\n- b\n"},
		{"scalar", "just text\n"},
		{"bad value", "a: [1, 2]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m OrderedMap[string]
			if err := yaml.Unmarshal([]byte(tt.src), &m); err == nil {
				t.Errorf("yaml.Unmarshal(%q) error = nil, want error", tt.src)
			}
		})
	}
}

func TestOrderedMap_NullIsEmpty(t *testing.T) {
	var wrapper struct {
		Values OrderedMap[int] `yaml:"values"`
	}
	if err := yaml.Unmarshal([]byte("values: ~\n"), &wrapper); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if wrapper.Values.Len() != 0 {
		t.Errorf("Len() = %d, want 0", wrapper.Values.Len())
	}
}

func TestOrderedMap_SetKeepsPosition(t *testing.T) {
	var m OrderedMap[int]
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("a", 3)

	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	if keys := m.Keys(); keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Keys() = %v, want [a b]", keys)
	}
	if v, _ := m.Get("a"); v != 3 {
		t.Errorf("Get(a) = %d, want 3", v)
	}

	keys := m.Keys()
	keys[0] = "mutated"
	if !m.Has("a") || m.Keys()[0] != "a" {
		t.Error("Keys() returned the internal slice")
	}

	var visited []string
	m.Each(func(k string, _ int) bool {
		visited = append(visited, k)
		return false
	})
	if len(visited) != 1 {
		t.Errorf("Each() visited %v, want stop after first", visited)
	}
}
