package process

import (
	"errors"
	"runtime"
	"testing"
)

func TestKillTree_RejectsNonPositivePID(t *testing.T) {
	t.Parallel()

	for _, pid := range []int{0, -1, -4242} {
		if err := KillTree(pid); !errors.Is(err, ErrInvalidPID) {
			t.Errorf("KillTree(%d) = %v, want ErrInvalidPID", pid, err)
		}
	}
}

func TestKillTree_MissingProcess(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("taskkill reports missing processes as errors")
	}
	// Real termination is covered by the browser integration tests.
	if err := KillTree(999999999); err != nil {
		t.Errorf("KillTree(missing) = %v, want nil", err)
	}
}
