package engine

import (
	"sync"
	"testing"

	"mercator-hq/auditor/pkg/checks"
)

func TestRegistry(t *testing.T) {
	a := &checks.Definition{ID: "a"}
	b := &checks.Definition{ID: "b"}
	reg := NewRegistry([]*checks.Definition{a, b})

	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}
	if got, ok := reg.Get("b"); !ok || got != b {
		t.Errorf("Get(b) = %v, %v, want b", got, ok)
	}
	if _, ok := reg.Get("missing"); ok {
		t.Error("Get(missing) ok = true, want false")
	}

	// List returns a copy.
	list := reg.List()
	list[0] = nil
	if reg.List()[0] != a {
		t.Error("modifying List() result changed the registry")
	}

	c := &checks.Definition{ID: "c"}
	reg.Replace([]*checks.Definition{c})
	if reg.Len() != 1 {
		t.Errorf("Len() after Replace = %d, want 1", reg.Len())
	}
	if _, ok := reg.Get("a"); ok {
		t.Error("Get(a) after Replace ok = true, want false")
	}
}

func TestRegistry_ConcurrentReplace(t *testing.T) {
	setA := []*checks.Definition{{ID: "a1"}, {ID: "a2"}}
	setB := []*checks.Definition{{ID: "b1"}, {ID: "b2"}, {ID: "b3"}}
	reg := NewRegistry(setA)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				reg.Replace(setB)
				reg.Replace(setA)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				list := reg.List()
				if len(list) != 2 && len(list) != 3 {
					t.Errorf("List() length = %d, want a complete rule set", len(list))
					return
				}
				prefix := list[0].ID[0]
				for _, def := range list {
					if def.ID[0] != prefix {
						t.Errorf("List() mixes rule sets: %v", list)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}
