package layout

// FrameSize returns the byte length of a buffer holding an argument/return
// scratch region of scratchBytes plus a trailing array of nargs pointers,
// one per argument, each pointing at that argument's slot. The pointer array
// is aligned to the target's pointer alignment and placed immediately after
// the scratch region. The second result is the array's byte offset.
func FrameSize(scratchBytes uintptr, nargs int, t Target) (total, arrayOffset uintptr) {
	arrayOffset = AlignedOffset(scratchBytes, t.PtrAlign)
	total = arrayOffset + uintptr(nargs)*t.PtrSize
	return total, arrayOffset
}
