package textlib

// Allocator hands out storage for DynamicString contents. Each execution unit
// owns one; nothing it returns is shared between units.
type Allocator interface {
	Allocate(n int) []byte
}

// DefaultArenaBlock is the block size used by NewArena when none is given.
const DefaultArenaBlock = 4096

// Arena is a bump allocator. Reset releases everything at once, so callers
// must copy any string they want to keep before resetting.
type Arena struct {
	block     []byte
	used      int
	blockSize int
}

// NewArena creates an arena that grows in blocks of blockSize bytes.
func NewArena(blockSize int) *Arena {
	if blockSize <= 0 {
		blockSize = DefaultArenaBlock
	}
	return &Arena{blockSize: blockSize}
}

// Allocate returns a zero-length slice with capacity n.
func (a *Arena) Allocate(n int) []byte {
	if n > len(a.block)-a.used {
		size := a.blockSize
		if n > size {
			size = n
		}
		a.block = make([]byte, size)
		a.used = 0
	}
	b := a.block[a.used : a.used : a.used+n]
	a.used += n
	return b
}

// Reset makes the whole current block available again.
func (a *Arena) Reset() {
	a.used = 0
}

// HeapAllocator allocates every request from the Go heap.
type HeapAllocator struct{}

func (HeapAllocator) Allocate(n int) []byte {
	return make([]byte, 0, n)
}
