package internal

import (
	"iter"
)

// IterSeq2Concat chains define tables (or any pair sequences) end to end.
// Duplicate keys are yielded as often as they appear; consumers that build
// a map keep the last one.
func IterSeq2Concat[K any, V any](seqs ...iter.Seq2[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, seq := range seqs {
			for key, value := range seq {
				if !yield(key, value) {
					return
				}
			}
		}
	}
}
