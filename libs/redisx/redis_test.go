package redisx

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestOpen(t *testing.T) {
	rdb, err := Open(context.Background(), Options{})
	if err != nil || rdb != nil {
		t.Fatalf("expected nil client without address, got %v, %v", rdb, err)
	}
	if ReadyCheck(nil) != nil {
		t.Fatal("expected no ready check without client")
	}

	mr := miniredis.RunT(t)
	rdb, err = Open(context.Background(), Options{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rdb.Close()
	if err := ReadyCheck(rdb)(context.Background()); err != nil {
		t.Fatalf("ready check: %v", err)
	}
}
