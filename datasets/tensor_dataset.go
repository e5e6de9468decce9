package datasets

import "github.com/gomlx/gomlx/pkg/core/tensors"

// TensorDataset adapts Stream to the gomlx dataset interface. Each epoch is
// a fresh Stream call, so with shuffling enabled every epoch gets a new
// permutation.
type TensorDataset struct {
	instances []*Instance
	cfg       StreamConfig
	epoch     int64

	stream *BatchStream
	err    error
}

// NewTensorDataset validates instances by opening the first epoch.
func NewTensorDataset(instances []*Instance, cfg StreamConfig) (*TensorDataset, error) {
	d := &TensorDataset{instances: instances, cfg: cfg}
	s, err := Stream(instances, d.epochConfig())
	if err != nil {
		return nil, err
	}
	d.stream = s
	return d, nil
}

// epochConfig offsets a fixed seed by the epoch number so shuffled epochs
// differ but stay reproducible.
func (d *TensorDataset) epochConfig() StreamConfig {
	cfg := d.cfg
	if cfg.Shuffle && cfg.Seed != 0 {
		cfg.Seed += d.epoch
	}
	return cfg
}

// Name returns the name of the dataset.
func (d *TensorDataset) Name() string {
	return "WindowDataset"
}

// Yield returns the next batch as a data tensor (rows, dataWindow, 1) and a
// label tensor (rows, labelsWindow). It returns io.EOF at the end of the
// epoch.
func (d *TensorDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	if d.err != nil {
		return nil, nil, nil, d.err
	}
	b, err := d.stream.Next()
	if err != nil {
		return nil, nil, nil, err
	}
	in, la, err := b.ToGomlxTensors()
	if err != nil {
		return nil, nil, nil, err
	}
	return nil, []*tensors.Tensor{in}, []*tensors.Tensor{la}, nil
}

// Reset starts a new epoch.
func (d *TensorDataset) Reset() {
	d.epoch++
	d.stream, d.err = Stream(d.instances, d.epochConfig())
}
