package tabular

import (
	"context"

	"github.com/profilekit/correct/blobstore"
)

// Split loads a dataset file and returns its three parts.
func Split(path string) (*Metadata, [][]float32, []string, error) {
	d, err := ReadFrom(context.Background(), blobstore.NewLocalStore(""), path)
	if err != nil {
		return nil, nil, nil, err
	}
	return d.Metadata, d.Values, d.Features, nil
}

// Merge writes the three parts of a dataset to a single file. The write is
// atomic: the destination never holds a partially written dataset.
func Merge(meta *Metadata, values [][]float32, features []string, path string) error {
	d := &Dataset{Metadata: meta, Values: values, Features: features}
	return WriteTo(context.Background(), blobstore.NewLocalStore(""), path, d)
}

// ReadFrom loads a dataset from a blob store.
func ReadFrom(ctx context.Context, store blobstore.Store, name string) (*Dataset, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// WriteTo encodes a dataset and writes it to a blob store.
func WriteTo(ctx context.Context, store blobstore.Store, name string, d *Dataset) error {
	data, err := Encode(d)
	if err != nil {
		return err
	}
	return store.Put(ctx, name, data)
}
