package vm

// AddInt32Checked returns (a+b, ok). ok is false on signed overflow.
func AddInt32Checked(a, b int32) (int32, bool) {
	sum := int32(uint32(a) + uint32(b))
	if (a^sum)&(b^sum) < 0 {
		return 0, false
	}
	return sum, true
}
