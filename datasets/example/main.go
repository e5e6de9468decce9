package main

// Example command that cuts one small recording into overlapping windows
// and streams them in batches, printing every batch and converting it into
// gomlx tensors.
//
// Usage:
//   go run ./datasets/example
//
// With -dir it loads <name>.wav / <name>.csv pairs from a directory instead
// of the built-in recording.

import (
	"flag"
	"fmt"
	"log"

	"github.com/Noofbiz/seqwindows/datasets"
)

func main() {
	dir := flag.String("dir", "", "directory of <name>.wav and <name>.csv recordings (optional)")
	batchSize := flag.Int("batch-size", 2, "windows per batch")
	shuffle := flag.Bool("shuffle", false, "shuffle windows before batching")
	flag.Parse()

	var instances []*datasets.Instance
	if *dir != "" {
		var err error
		instances, err = datasets.NewLoader(*dir, 4, 3, 2, 1).LoadAll()
		if err != nil {
			log.Fatalf("failed to load recordings: %v", err)
		}
	} else {
		// 1st window: |1 2 3 4| 5 6 7 8
		// 2nd window: 1 2 3 |4 5 6 7| 8
		// 3rd window: 1 2 3 4 |5 6 7 8|
		in, err := datasets.NewInstance("example",
			[]float32{1, 2, 3, 4, 5, 6, 7, 8}, []int{10, 20, 30, 40}, 4, 3, 2, 1)
		if err != nil {
			log.Fatalf("failed to build instance: %v", err)
		}
		instances = []*datasets.Instance{in}
	}

	for _, in := range instances {
		fmt.Printf("%s: %d windows, data %v, labels %v\n",
			in.Filename, in.WindowCount(), in.CuttedDataIndexes, in.CuttedLabelsIndexes)
	}

	stream, err := datasets.BatchGenerator(instances, *batchSize, *shuffle)
	if err != nil {
		log.Fatalf("failed to start batch stream: %v", err)
	}
	fmt.Printf("Streaming %d windows in %d batches\n", stream.Len(), stream.NumBatches())

	i := 0
	for b, err := range stream.All() {
		if err != nil {
			log.Fatalf("batch %d: %v", i, err)
		}
		fmt.Printf("batch %d: data shape %v labels shape %v\n", i, b.Data.Shape, b.Labels.Shape)
		for r := range b.Rows() {
			fmt.Printf("  data %v labels %v\n", b.Data.Row(r), b.Labels.Row(r))
		}

		inT, laT, err := b.ToGomlxTensors()
		if err != nil {
			log.Fatalf("failed to convert batch to gomlx tensors: %v", err)
		}
		fmt.Printf("  tensors: input=%s label=%s\n", inT.Shape(), laT.Shape())
		i++
	}
}
