package hotkeys

import (
	"errors"
	"testing"

	"github.com/1broseidon/quickstep/internal/platform"
)

func TestNewHandler_RequiresX11(t *testing.T) {
	_, err := NewHandler(platform.NewSimCompositor(), nil)
	if !errors.Is(err, ErrNoX11) {
		t.Fatalf("NewHandler(sim) error = %v, want ErrNoX11", err)
	}
}
