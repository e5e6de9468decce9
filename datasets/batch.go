package datasets

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Batch is one step of training input: data windows shaped
// (rows, dataWindow, 1) and label windows shaped (rows, labelsWindow).
type Batch struct {
	Data   *Dense[float32]
	Labels *Dense[int16]
}

// Rows returns the number of windows in the batch.
func (b *Batch) Rows() int {
	return b.Data.Rows()
}

// ToGomlxTensors converts the batch into gomlx tensors with the same
// shapes. The tensors own copies of the buffers.
func (b *Batch) ToGomlxTensors() (*tensors.Tensor, *tensors.Tensor, error) {
	if b.Data == nil || b.Labels == nil {
		return nil, nil, fmt.Errorf("batch is missing data or labels")
	}
	if b.Data.Rows() != b.Labels.Rows() {
		return nil, nil, fmt.Errorf("%w: data has %d rows, labels have %d", ErrShape, b.Data.Rows(), b.Labels.Rows())
	}

	data := make([]float32, len(b.Data.Data))
	copy(data, b.Data.Data)
	labels := make([]int16, len(b.Labels.Data))
	copy(labels, b.Labels.Data)

	inT := tensors.FromFlatDataAndDimensions(data, b.Data.Shape...)
	labT := tensors.FromFlatDataAndDimensions(labels, b.Labels.Shape...)
	return inT, labT, nil
}
