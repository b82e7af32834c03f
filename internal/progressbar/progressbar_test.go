package progressbar

import "testing"

func TestDisabledBarIsNoOp(t *testing.T) {
	// In CI and under `go test`, stderr is not a terminal, so New must
	// return the disabled no-op path rather than touching mpb at all.
	b := New("converting", 10)
	b.Increment()
	b.SetTotal(20)
	b.Wait()
}
