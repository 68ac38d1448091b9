package memory

import "github.com/gobeaver/filecenter"

func init() {
	filecenter.RegisterDriver("memory", func(cfg *filecenter.Config) (filecenter.BlobStore, error) {
		return New(), nil
	})
}
