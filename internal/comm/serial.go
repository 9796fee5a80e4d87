package comm

// Serial is the single-process communicator. Collectives degenerate to
// local copies, so serial and distributed runs share the same code paths.
type Serial struct{}

// NewSerial returns a communicator for a group of one.
func NewSerial() *Serial {
	return &Serial{}
}

// Rank returns 0.
func (s *Serial) Rank() int { return 0 }

// Size returns 1.
func (s *Serial) Size() int { return 1 }

// AllgatherInts returns a single-row matrix holding a copy of row.
func (s *Serial) AllgatherInts(row []int) ([][]int, error) {
	return [][]int{append([]int(nil), row...)}, nil
}

// AlltoallInts returns a copy of the single send buffer.
func (s *Serial) AlltoallInts(sends [][]int) ([][]int, error) {
	if err := checkSends(len(sends), 1); err != nil {
		return nil, err
	}
	return [][]int{append([]int(nil), sends[0]...)}, nil
}

// AlltoallFloats returns a copy of the single send buffer.
func (s *Serial) AlltoallFloats(sends [][]float64) ([][]float64, error) {
	if err := checkSends(len(sends), 1); err != nil {
		return nil, err
	}
	return [][]float64{append([]float64(nil), sends[0]...)}, nil
}

// AllreduceSum returns x unchanged.
func (s *Serial) AllreduceSum(x float64) (float64, error) {
	return x, nil
}
