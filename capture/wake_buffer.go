// SPDX-License-Identifier: EPL-2.0

package capture

// WakeBuffer is a fixed-capacity byte store with a fill level. It never
// grows and is not safe for concurrent use.
type WakeBuffer struct {
	buf  []byte
	fill int
}

// NewWakeBuffer allocates an empty buffer holding up to capacity bytes.
func NewWakeBuffer(capacity int) *WakeBuffer {
	return &WakeBuffer{buf: make([]byte, capacity)}
}

// Cap is the fixed capacity in bytes.
func (w *WakeBuffer) Cap() int { return len(w.buf) }

// Len is the fill level in bytes.
func (w *WakeBuffer) Len() int { return w.fill }

// Fits reports whether n more bytes can be stored.
func (w *WakeBuffer) Fits(n int) bool {
	return w.fill+n <= len(w.buf)
}

// Append stores b and reports true, or stores nothing and reports false when
// b does not fit. A block is never split.
func (w *WakeBuffer) Append(b []byte) bool {
	if !w.Fits(len(b)) {
		return false
	}
	w.fill += copy(w.buf[w.fill:], b)
	return true
}

// Bytes returns the stored bytes. The slice aliases the buffer and is
// overwritten by later appends.
func (w *WakeBuffer) Bytes() []byte {
	return w.buf[:w.fill]
}

// Reset empties the buffer without clearing its memory.
func (w *WakeBuffer) Reset() {
	w.fill = 0
}
