package engine

import (
	"math"
	"unsafe"
)

func unsafeAdd(p *byte, n int) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(p), n)
}

func nan() float64 { return math.NaN() }
