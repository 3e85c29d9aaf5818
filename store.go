package vamana

import (
	"bytes"
	"context"

	"github.com/hupe1980/vamana/blobstore"
)

// SaveToStore serializes the index and writes it to a blob store under name.
// The bytes are identical to SaveFile's output.
func (ix *Index) SaveToStore(ctx context.Context, store blobstore.Store, name string) error {
	var buf bytes.Buffer
	if err := ix.Save(&buf); err != nil {
		ix.opts.logger.LogSave(ctx, name, err)
		return err
	}

	if err := store.Put(ctx, name, &buf); err != nil {
		err = translateError(err)
		ix.opts.logger.LogSave(ctx, name, err)
		return err
	}

	ix.opts.logger.LogSave(ctx, name, nil)
	return nil
}

// LoadFromStore reads an index blob written by SaveToStore.
func LoadFromStore(ctx context.Context, store blobstore.Store, name string, optFns ...Option) (*Index, error) {
	rc, err := store.Get(ctx, name)
	if err != nil {
		return nil, translateError(err)
	}
	defer rc.Close()

	ix, err := Load(rc, optFns...)
	if err != nil {
		return nil, err
	}
	ix.opts.logger.LogLoad(ctx, name, ix.meta.Count, ix.meta.Dim, nil)
	return ix, nil
}
