package fetch

import "errors"

var errBufferOpen = errors.New("response buffer still receiving")

// responseBuffer accumulates chunks for one request in arrival order.
type responseBuffer struct {
	data   []byte
	chunks int
	sealed bool
}

func (b *responseBuffer) append(chunk []byte) {
	if b.sealed {
		return
	}
	b.data = append(b.data, chunk...)
	b.chunks++
}

// seal marks end-of-data; bytes are readable only afterwards.
func (b *responseBuffer) seal() {
	b.sealed = true
}

func (b *responseBuffer) bytes() ([]byte, error) {
	if !b.sealed {
		return nil, errBufferOpen
	}
	return b.data, nil
}

func (b *responseBuffer) len() int { return len(b.data) }

func (b *responseBuffer) discard() {
	b.data = nil
	b.chunks = 0
}
