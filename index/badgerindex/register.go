package badgerindex

import "github.com/gobeaver/filecenter"

func init() {
	filecenter.RegisterIndex("badger", func(cfg *filecenter.Config) (filecenter.Index, error) {
		return Open(cfg.IndexPath, nil)
	})
}
