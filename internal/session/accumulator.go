package session

// accumulator assembles decoded fragments into the final result. It grows on
// demand up to limit bytes; a fragment that would cross the limit is dropped
// whole, so a multi-byte code point is never split. Dropping is not an error:
// generation continues and the condition is surfaced via droppedFragments.
type accumulator struct {
	buf     []byte
	limit   int // 0 = unbounded
	dropped int
}

func newAccumulator(limit int) *accumulator {
	return &accumulator{limit: limit}
}

// append adds frag to the buffer. It returns false when the fragment was
// dropped because the bound would be exceeded.
func (a *accumulator) append(frag []byte) bool {
	if len(frag) == 0 {
		return true
	}
	if a.limit > 0 && len(a.buf)+len(frag) > a.limit {
		a.dropped++
		return false
	}
	a.buf = append(a.buf, frag...)
	return true
}

func (a *accumulator) droppedFragments() int { return a.dropped }

func (a *accumulator) String() string { return string(a.buf) }
