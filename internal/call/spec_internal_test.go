package call

import (
	"testing"

	"foreign/internal/ctype"
	"foreign/internal/engine"
	"foreign/internal/engine/enginetest"
)

// Prepare must reserve one pointer-sized word of slack after the return
// slot, whatever the argument count: the native call engine may write one
// word past the nominal return size.
func TestPrepareReservesSlackWord(t *testing.T) {
	for _, nargs := range []int{0, 1, 3, 9} {
		host := &Host{Engine: enginetest.New()}
		spec := host.NewSpec(Context{})
		for i := 0; i < nargs; i++ {
			spec.AddArg(ctype.TSInt32)
		}
		if err := spec.Prepare(engine.Default, ctype.TSInt64); err != nil {
			t.Fatalf("nargs=%d: Prepare: %v", nargs, err)
		}
		want := spec.retOffset + spec.retType.Size + spec.target.PtrSize
		if spec.totalBytes < want {
			t.Errorf("nargs=%d: scratch %d bytes, need %d (return end %d + slack %d)",
				nargs, spec.totalBytes, want,
				spec.retOffset+spec.retType.Size, spec.target.PtrSize)
		}
		spec.Close()
	}
}
