package bitmap

import "testing"

func TestAppendAndHas(t *testing.T) {
	t.Parallel()

	b := New(0)
	// Span more than one word so the growth path is exercised.
	want := make([]bool, 130)
	for i := range want {
		set := i%3 == 0
		want[i] = set
		b.Append(set)
	}

	if b.Len() != len(want) {
		t.Fatalf("Len = %d, want %d", b.Len(), len(want))
	}
	for i, set := range want {
		if b.Has(i) != set {
			t.Fatalf("Has(%d) = %v, want %v", i, b.Has(i), set)
		}
	}
}

func TestHasOutOfRange(t *testing.T) {
	t.Parallel()

	b := New(8)
	b.Append(true)
	if b.Has(-1) {
		t.Fatal("negative index should be absent")
	}
	if b.Has(1000) {
		t.Fatal("index past the appended bits should be absent")
	}
}

func TestSetGrows(t *testing.T) {
	t.Parallel()

	var b Bitmap // zero value is usable
	b.Set(200)
	if !b.Has(200) {
		t.Fatal("Set(200) should be visible")
	}
	if b.Has(199) || b.Has(201) {
		t.Fatal("neighboring bits should stay clear")
	}
	if b.Len() != 201 {
		t.Fatalf("Len = %d, want 201", b.Len())
	}
	b.Set(-5) // ignored
	if b.Len() != 201 {
		t.Fatalf("Len after Set(-5) = %d, want 201", b.Len())
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	b := New(0)
	for i := 0; i < 70; i++ {
		b.Append(true)
	}
	b.Reset()
	if b.Len() != 0 {
		t.Fatalf("Len after Reset = %d, want 0", b.Len())
	}
	if b.Has(0) || b.Has(69) {
		t.Fatal("bits should be cleared after Reset")
	}
	// The bitmap is reusable after Reset.
	b.Append(false)
	b.Append(true)
	if b.Has(0) || !b.Has(1) {
		t.Fatal("append-order addressing should restart at zero")
	}
}
