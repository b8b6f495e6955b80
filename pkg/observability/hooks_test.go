package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	v := NoopVariantHooks{}
	v.OnVariantStart(ctx, "M1001", "001")
	v.OnVariantComplete(ctx, "M1001", "001", time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "raster")
	c.OnCacheMiss(ctx, "raster")
	c.OnCacheSet(ctx, "raster", 1024)

	u := NoopUploadHooks{}
	u.OnUpload(ctx, "productimages", "M1001 - 001.png", 2048, time.Second, nil)
}

type recordingHooks struct {
	started   []string
	completed []string
	failed    int
}

func (r *recordingHooks) OnVariantStart(_ context.Context, m, code string) {
	r.started = append(r.started, m+"/"+code)
}

func (r *recordingHooks) OnVariantComplete(_ context.Context, m, code string, _ time.Duration, err error) {
	r.completed = append(r.completed, m+"/"+code)
	if err != nil {
		r.failed++
	}
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Variant().(NoopVariantHooks); !ok {
		t.Error("Variant() should default to NoopVariantHooks")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should default to NoopCacheHooks")
	}
	if _, ok := Upload().(NoopUploadHooks); !ok {
		t.Error("Upload() should default to NoopUploadHooks")
	}

	rec := &recordingHooks{}
	SetVariantHooks(rec)
	Variant().OnVariantStart(context.Background(), "M1001", "002")
	Variant().OnVariantComplete(context.Background(), "M1001", "002", 0, errors.New("boom"))

	if len(rec.started) != 1 || rec.started[0] != "M1001/002" {
		t.Errorf("started = %v, want [M1001/002]", rec.started)
	}
	if rec.failed != 1 {
		t.Errorf("failed = %d, want 1", rec.failed)
	}

	SetVariantHooks(nil)
	if Variant() != VariantHooks(rec) {
		t.Error("SetVariantHooks(nil) should keep the registered hooks")
	}

	Reset()
	if _, ok := Variant().(NoopVariantHooks); !ok {
		t.Error("Reset should restore NoopVariantHooks")
	}
}
