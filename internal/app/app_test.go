package app

import (
	"testing"

	"go.uber.org/fx"
)

// ValidateApp checks the dependency graph without calling constructors,
// so no database, broker or Telegram connection is needed.
func TestCreateApp_GraphIsComplete(t *testing.T) {
	if err := fx.ValidateApp(CreateApp()); err != nil {
		t.Fatalf("fx validation failed: %v", err)
	}
}
