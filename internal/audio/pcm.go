package audio

import (
	"encoding/binary"
	"math"
)

// decodeF32 converts little-endian float32 PCM to samples
func decodeF32(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

// encodeF32 writes samples into dst as little-endian float32 PCM
func encodeF32(dst []byte, src []float32) {
	for i, s := range src {
		if (i+1)*4 > len(dst) {
			return
		}
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(s))
	}
}
