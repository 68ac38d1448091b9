package local

import "github.com/gobeaver/filecenter"

func init() {
	filecenter.RegisterDriver("local", func(cfg *filecenter.Config) (filecenter.BlobStore, error) {
		return New(cfg.LocalBasePath)
	})
}
