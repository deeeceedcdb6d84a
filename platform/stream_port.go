package platform

import (
	"context"
	"io"
	"sync/atomic"

	"timefountain-go/x/ring"
)

// StreamPort adapts a blocking reader and a writer (stdin/stdout on the
// host) to the console's RecvSomeContext/Write port shape. A goroutine
// pumps the reader into a byte ring.
type StreamPort struct {
	w   io.Writer
	rx  *ring.Ring
	eof chan struct{}
	err atomic.Value // error
}

func NewStreamPort(r io.Reader, w io.Writer) *StreamPort {
	p := &StreamPort{w: w, rx: ring.New(1024), eof: make(chan struct{})}
	go p.pump(r)
	return p
}

func (p *StreamPort) pump(r io.Reader) {
	defer close(p.eof)
	var buf [256]byte
	for {
		n, err := r.Read(buf[:])
		src := buf[:n]
		for len(src) > 0 {
			k := p.rx.TryWriteFrom(src)
			src = src[k:]
			if len(src) == 0 {
				break
			}
			<-p.rx.Writable()
		}
		if err != nil {
			p.err.Store(err)
			return
		}
	}
}

func (p *StreamPort) Write(b []byte) (int, error) { return p.w.Write(b) }

// RecvSomeContext blocks until at least one byte is available, the reader
// ends (io.EOF once drained) or ctx is done.
func (p *StreamPort) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	for {
		if n := p.rx.TryReadInto(buf); n > 0 {
			return n, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-p.rx.Readable():
		case <-p.eof:
			if n := p.rx.TryReadInto(buf); n > 0 {
				return n, nil
			}
			if err, _ := p.err.Load().(error); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
	}
}
