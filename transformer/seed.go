package transformer

// deriveSeed offsets a base seed so sibling layers sharing one seed
// pointer (e.g. a block's four attention projections) draw from
// distinct, reproducible streams rather than restarting the same PRNG
// sequence for every one of them. A nil base seed stays nil (unseeded).
func deriveSeed(base *int64, offset int64) *int64 {
	if base == nil {
		return nil
	}
	derived := *base + offset
	return &derived
}
