package hardware

import (
	"context"
	"errors"
	"testing"
)

func TestRegistry_CacheLifecycle(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	mustCreate(t, repo, newGPIO("preexisting", 1))

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if reg.DeviceCount() != 1 {
		t.Fatalf("DeviceCount() = %d, want 1", reg.DeviceCount())
	}

	dev := newGPIO("new", 2)
	if err := reg.CreateDevice(ctx, dev); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	got, err := reg.FindByName(ctx, "new")
	if err != nil || got.ID != dev.ID {
		t.Fatalf("FindByName() = %v, %v", got, err)
	}
	got.Name = "mutated"
	again, _ := reg.GetDevice(ctx, dev.ID) //nolint:errcheck // checked via value
	if again.Name != "new" {
		t.Error("GetDevice() returned a shared pointer into the cache")
	}

	dev.Enabled = false
	if err := reg.UpdateDevice(ctx, dev); err != nil {
		t.Fatalf("UpdateDevice() error = %v", err)
	}
	if list := reg.ListByClass(ClassGPIO); len(list) != 2 || list[0].Name != "new" || list[0].Enabled {
		t.Errorf("ListByClass() = %+v", list)
	}

	if err := reg.DeleteDevice(ctx, dev.ID); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	if _, err := reg.GetDevice(ctx, dev.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDevice() after delete error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_CreateFailureLeavesCache(t *testing.T) {
	repo := setupTestRepo(t)
	reg := NewRegistry(repo)
	ctx := context.Background()

	if err := reg.CreateDevice(ctx, newGPIO("x", 1)); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	if err := reg.CreateDevice(ctx, newGPIO("x", 2)); !errors.Is(err, ErrNameAlreadyUsed) {
		t.Fatalf("CreateDevice() error = %v, want ErrNameAlreadyUsed", err)
	}
	if reg.DeviceCount() != 1 {
		t.Errorf("DeviceCount() = %d, want 1", reg.DeviceCount())
	}
}
