//go:build !windows

package winsvc

import (
	"context"
	"errors"
	"testing"
)

func TestUnsupported(t *testing.T) {
	ok, err := IsService()
	if ok || err != nil {
		t.Fatalf("IsService() = %v, %v; want false, nil", ok, err)
	}

	calls := map[string]func() error{
		"Run":       func() error { return Run("kkmgate", nil, nil) },
		"Install":   func() error { return Install(Config{Name: "kkmgate"}) },
		"Uninstall": func() error { return Uninstall("kkmgate") },
		"Start":     func() error { return Start("kkmgate") },
		"Stop":      func() error { return Stop(context.Background(), "kkmgate") },
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, ErrUnsupported) {
			t.Errorf("%s() error = %v, want ErrUnsupported", name, err)
		}
	}
}
