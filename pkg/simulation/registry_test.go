package simulation

import (
	"context"
	"testing"
)

type fakeSim struct{ name string }

func (f *fakeSim) Name() string                                 { return f.name }
func (f *fakeSim) Description() string                          { return "test scene" }
func (f *fakeSim) Configure(params map[string]interface{}) error { return nil }
func (f *fakeSim) Run(ctx context.Context) error                { return nil }
func (f *fakeSim) Stop() error                                  { return nil }

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("Test Scene", func() Simulation { return &fakeSim{name: "Test Scene"} }); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	sim, err := r.Get("Test Scene")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sim.Name() != "Test Scene" {
		t.Errorf("got %s, want Test Scene", sim.Name())
	}

	// Each Get returns a fresh instance
	other, _ := r.Get("Test Scene")
	if sim == other {
		t.Error("Get returned a shared instance")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	factory := func() Simulation { return &fakeSim{} }

	if err := r.Register("dup", factory); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("dup", factory); err == nil {
		t.Error("expected error on duplicate registration")
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("missing"); err == nil {
		t.Error("expected error for unknown simulation")
	}
}
