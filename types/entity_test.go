package types

import (
	"testing"
	"time"
)

func TestNewEntity(t *testing.T) {
	e := NewEntity()

	if e.CreatedAt.IsZero() || e.UpdatedAt.IsZero() {
		t.Fatal("timestamps should be set")
	}
	if !e.CreatedAt.Equal(e.UpdatedAt) {
		t.Errorf("CreatedAt %v != UpdatedAt %v", e.CreatedAt, e.UpdatedAt)
	}
	if !e.IsNew() {
		t.Error("freshly created entity should be new")
	}
}

func TestTouch(t *testing.T) {
	e := NewEntity()
	created := e.CreatedAt

	time.Sleep(time.Millisecond)
	e.Touch()

	if !e.CreatedAt.Equal(created) {
		t.Error("Touch must not change CreatedAt")
	}
	if !e.UpdatedAt.After(created) {
		t.Errorf("UpdatedAt %v should advance past %v", e.UpdatedAt, created)
	}
}

func TestIsStale(t *testing.T) {
	e := Entity{
		CreatedAt: time.Now().Add(-2 * time.Hour),
		UpdatedAt: time.Now().Add(-time.Hour),
	}

	if !e.IsStale(30 * time.Minute) {
		t.Error("entity updated an hour ago should be stale at 30m")
	}
	if e.IsStale(2 * time.Hour) {
		t.Error("entity updated an hour ago should not be stale at 2h")
	}
}
