//go:build !tinygo

package arch

import "testing"

func TestUniprocessorNesting(t *testing.T) {
	var u Uniprocessor
	if u.Masked() {
		t.Fatal("zero Uniprocessor starts masked")
	}

	outer := u.Disable()
	if outer != Enabled {
		t.Errorf("outer Disable returned %d, want Enabled", outer)
	}
	inner := u.Disable()
	if inner != Masked {
		t.Errorf("inner Disable returned %d, want Masked", inner)
	}

	u.Restore(inner)
	if !u.Masked() {
		t.Error("restoring the inner state unmasked exceptions")
	}
	u.Restore(outer)
	if u.Masked() {
		t.Error("restoring the outer state left exceptions masked")
	}
}

func TestDefaultIsSingleCore(t *testing.T) {
	p := Default()
	if n := p.NumCores(); n != 1 {
		t.Errorf("NumCores() = %d, want 1", n)
	}
	if i := p.CoreIndex(); i != 0 {
		t.Errorf("CoreIndex() = %d, want 0", i)
	}
}
