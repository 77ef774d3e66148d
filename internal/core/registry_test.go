package core

import "testing"

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeAdapter{})

	a, ok := r.Get(KindItem)
	if !ok {
		t.Fatal("Get(ITEM) not found after Register")
	}
	if a.Kind() != KindItem {
		t.Errorf("adapter kind = %s, want ITEM", a.Kind())
	}
	if _, ok := r.Get(KindUser); ok {
		t.Error("Get(USER) = found, want missing")
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate Register did not panic")
		}
	}()
	r := NewRegistry()
	r.Register(fakeAdapter{})
	r.Register(fakeAdapter{})
}

func TestRegistry_Kinds(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeAdapter{})

	kinds := r.Kinds()
	if len(kinds) != 1 || kinds[0] != KindItem {
		t.Errorf("Kinds() = %v, want [ITEM]", kinds)
	}
}
