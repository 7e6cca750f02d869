package games

// stubSource replays fixed values; it repeats the last value once exhausted
type stubSource struct {
	ints    []int
	uint64s []uint64
}

func (s *stubSource) IntN(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	if len(s.ints) > 1 {
		s.ints = s.ints[1:]
	}
	return v % n
}

func (s *stubSource) Uint64() uint64 {
	if len(s.uint64s) == 0 {
		return 0
	}
	v := s.uint64s[0]
	if len(s.uint64s) > 1 {
		s.uint64s = s.uint64s[1:]
	}
	return v
}
