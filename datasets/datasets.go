// Package datasets cuts fixed-size, overlapping windows out of per-recording
// sequences and streams them as training batches for recurrent models.
//
// The data flow is:
//
//	instances -> per-instance window-index tables -> combined IndexTable
//	          -> optional shuffle -> batch-sized chunks -> ExtractJoint -> Batch
//
// Only the index table (offsets and filenames) is held for a whole pass;
// window values are copied out one batch at a time, so memory stays bounded
// by a single batch no matter how many windows the recordings produce.
//
// Example: data [1..8] cut with window 4 and step 3 gives the index rows
//
//	[0, 4)  |1 2 3 4| 5 6 7 8
//	[3, 7)  1 2 3 |4 5 6 7| 8
//	[4, 8)  1 2 3 4 |5 6 7 8|
//
// and with a batch size of 2 the stream yields the first two windows, then
// the last one.
package datasets

import "github.com/gomlx/gomlx/pkg/core/tensors"

// Dataset is the surface gomlx training loops consume (train.Dataset).
// TensorDataset implements it on top of Stream.
type Dataset interface {
	Name() string
	Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error)
	Reset()
}

var _ Dataset = (*TensorDataset)(nil)
