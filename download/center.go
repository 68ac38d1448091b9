//go:generate go run go.uber.org/mock/mockgen -source=center.go -destination=../internal/mocks/mock_center.go -package=mocks
package download

import (
	"context"
	"time"

	"github.com/gobeaver/filecenter"
	"github.com/google/uuid"
)

// Center resolves file ids and id tokens to stored files.
// *filecenter.FileCenter satisfies it.
type Center interface {
	// FileItemByID returns (nil, nil) when no file has the id.
	FileItemByID(ctx context.Context, id uuid.UUID) (*filecenter.FileItem, error)
	DecryptIDToken(token string) (uuid.UUID, error)
}

// Item is a handle to one stored file. *filecenter.FileItem satisfies it.
type Item interface {
	FileName() string
	MimeType() string
	FileSize() uint64
	ExpirationTime() (time.Time, bool)
	IntoFileData(ctx context.Context) (filecenter.FileData, error)
}

var (
	_ Center = (*filecenter.FileCenter)(nil)
	_ Item   = (*filecenter.FileItem)(nil)
)
