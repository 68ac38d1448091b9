package download

import (
	"context"
	"io"
)

// contextReader ends the copy of a streamed payload once the request
// context is done. A read already in flight is not interrupted.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
