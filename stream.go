package filecenter

import (
	"context"
	"sync"
)

// itemStream is the Stream handed out by FileItem.IntoFileData. Closing it
// closes the blob reader and, for one-shot temporary items, releases the
// blob reference.
type itemStream struct {
	*verifyingReader
	onClose func(context.Context)
	once    sync.Once
}

func (s *itemStream) Close() error {
	err := s.verifyingReader.Close()
	s.once.Do(func() {
		if s.onClose != nil {
			// The request context may already be cancelled by the time the
			// consumer closes the stream.
			s.onClose(context.Background())
		}
	})
	return err
}
