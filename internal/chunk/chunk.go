// Package chunk implements the append-only chunk lists that back the buffered writer.
//
// A List is an intrusive singly linked list with explicit head, tail and byte size.
// Detaching the whole list and splicing a detached segment in front of another list are
// both O(1), so flushing one buffer never copies or rescans its sibling.
package chunk

// Chunk is one encoded line and the link to the next one.
type Chunk struct {
	data []byte
	next *Chunk
}

// Data returns the encoded bytes held by the chunk.
func (c *Chunk) Data() []byte {
	return c.data
}

// Segment is a detached run of chunks. It owns the chunks it links.
type Segment struct {
	Head *Chunk
	Tail *Chunk
	Size int64
	Len  int
}

// Empty reports whether the segment links no chunks.
func (s Segment) Empty() bool {
	return s.Head == nil
}

// Each walks the segment in FIFO order. When fn returns false the walk stops and the
// unvisited suffix (the chunks after the one just handed to fn) is returned.
// Visited chunks are unlinked as they go so the garbage collector can reclaim them.
func (s Segment) Each(fn func([]byte) bool) Segment {
	cur := s.Head
	remaining := s

	for cur != nil {
		next := cur.next
		cur.next = nil

		remaining.Size -= int64(len(cur.data))
		remaining.Len--

		if !fn(cur.data) {
			if next == nil {
				return Segment{}
			}

			remaining.Head = next

			return remaining
		}

		cur = next
	}

	return Segment{}
}

// Bytes joins the chunk payloads into one slice without consuming the segment.
func (s Segment) Bytes() []byte {
	if s.Head == nil {
		return nil
	}

	out := make([]byte, 0, s.Size)
	for c := s.Head; c != nil; c = c.next {
		out = append(out, c.data...)
	}

	return out
}

// List is the buffer a writer appends to. The zero value is an empty list.
type List struct {
	head *Chunk
	tail *Chunk
	size int64
	len  int
}

// Append links data at the tail and adds its length to the size counter.
func (l *List) Append(data []byte) {
	c := &Chunk{data: data}

	if l.tail == nil {
		l.head = c
	} else {
		l.tail.next = c
	}

	l.tail = c
	l.size += int64(len(data))
	l.len++
}

// Size is the sum of the byte lengths of all linked chunks.
func (l *List) Size() int64 {
	return l.size
}

// Len is the number of linked chunks.
func (l *List) Len() int {
	return l.len
}

// Empty reports whether the list holds no chunks.
func (l *List) Empty() bool {
	return l.head == nil
}

// Detach hands the whole chain to the caller and resets the list.
func (l *List) Detach() Segment {
	seg := Segment{Head: l.head, Tail: l.tail, Size: l.size, Len: l.len}
	*l = List{}

	return seg
}

// Prepend splices seg in front of the current head. The bytes in seg predate
// everything already queued in l.
func (l *List) Prepend(seg Segment) {
	if seg.Head == nil {
		return
	}

	tail := seg.Tail
	if tail == nil {
		tail = seg.Head
		for tail.next != nil {
			tail = tail.next
		}
	}

	tail.next = l.head
	if l.tail == nil {
		l.tail = tail
	}

	l.head = seg.Head
	l.size += seg.Size
	l.len += seg.Len
}
