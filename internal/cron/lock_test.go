package cron

import (
	"context"
	"testing"
	"time"
)

type fakeRedisStore struct {
	values map[string]string
}

func newFakeRedisStore() *fakeRedisStore {
	return &fakeRedisStore{values: map[string]string{}}
}

func (f *fakeRedisStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedisStore) Get(_ context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeRedisStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func TestRedisLockAcquireRelease(t *testing.T) {
	store := newFakeRedisStore()
	lock, err := NewRedisLock(store, "sl:lock:test", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	ok, err := lock.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected first acquire to win (ok=%v err=%v)", ok, err)
	}

	other, err := NewRedisLock(store, "sl:lock:test", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	ok, err = other.Acquire(context.Background())
	if err != nil || ok {
		t.Fatalf("expected second acquire to lose (ok=%v err=%v)", ok, err)
	}

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}

	ok, err = other.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected acquire after release to win (ok=%v err=%v)", ok, err)
	}
}

func TestRedisLockReleaseOnlyReleasesOwn(t *testing.T) {
	store := newFakeRedisStore()
	holder, _ := NewRedisLock(store, "sl:lock:test", time.Minute)
	bystander, _ := NewRedisLock(store, "sl:lock:test", time.Minute)

	if ok, _ := holder.Acquire(context.Background()); !ok {
		t.Fatal("expected acquire to win")
	}

	// Never acquired, so release must be a no-op.
	if err := bystander.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, held := store.values["sl:lock:test"]; !held {
		t.Fatal("bystander release must not drop the holder's lock")
	}
}
