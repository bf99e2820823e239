// Package train exposes build and format information for phasetrain.
//
// The training engine itself lives under internal/train; this package is the
// stable surface other tools can import to identify the binary that wrote a
// checkpoint.
//
// Example:
//
//	info := train.GetInfo()
//	fmt.Printf("phasetrain %s (checkpoint format %s)\n", info.Version, info.CheckpointFormat)
package train
