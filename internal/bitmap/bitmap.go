// Package bitmap provides a small bitset backed by uint64 words. The column
// builders use it to track NULL positions without one bool per value.
package bitmap

// Bitmap is a growable bitset. The zero value is an empty set.
type Bitmap struct {
	data []uint64
	n    int // highest appended index + 1
}

// New allocates a bitmap with capacity hint for n bits.
func New(n int) *Bitmap {
	if n <= 0 {
		return &Bitmap{}
	}
	return &Bitmap{data: make([]uint64, 0, (n+63)/64)}
}

// Append adds the next bit. Bits are addressed in append order, so the i-th
// Append call controls bit i.
func (b *Bitmap) Append(set bool) {
	word := b.n / 64
	for word >= len(b.data) {
		b.data = append(b.data, 0)
	}
	if set {
		b.data[word] |= 1 << uint(b.n%64)
	}
	b.n++
}

// Set sets bit i, growing the bitmap if needed. Negative i is ignored.
func (b *Bitmap) Set(i int) {
	if i < 0 {
		return
	}
	word := i / 64
	for word >= len(b.data) {
		b.data = append(b.data, 0)
	}
	b.data[word] |= 1 << uint(i%64)
	if i >= b.n {
		b.n = i + 1
	}
}

// Has reports whether bit i is set. Out-of-range i returns false.
func (b *Bitmap) Has(i int) bool {
	if i < 0 {
		return false
	}
	word := i / 64
	if word >= len(b.data) {
		return false
	}
	return b.data[word]&(1<<uint(i%64)) != 0
}

// Len returns the number of appended bits.
func (b *Bitmap) Len() int { return b.n }

// Reset clears the bitmap for reuse without releasing its storage.
func (b *Bitmap) Reset() {
	for i := range b.data {
		b.data[i] = 0
	}
	b.data = b.data[:0]
	b.n = 0
}
