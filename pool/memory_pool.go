package pool

import (
	"bytes"
	"sync"
)

// BufferPool provides a pool of reusable encode buffers
var BufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// maxPooledBuffer keeps oversized buffers out of the pool
const maxPooledBuffer = 8 << 20

// GetBuffer returns a buffer from the pool
func GetBuffer() *bytes.Buffer {
	return BufferPool.Get().(*bytes.Buffer)
}

// PutBuffer returns a buffer to the pool after resetting it
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	buf.Reset()
	BufferPool.Put(buf)
}

// CopyBytes detaches the buffer contents so the buffer can be pooled again
func CopyBytes(buf *bytes.Buffer) []byte {
	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())
	return data
}
