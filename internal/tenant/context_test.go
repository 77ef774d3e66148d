package tenant

import (
	"context"
	"errors"
	"testing"
)

func TestWith_DoesNotMutateReceiver(t *testing.T) {
	base := Context{TenantID: "central", UserID: "u1", Token: "tok"}

	member := base.With("member-a")

	if member.TenantID != "member-a" {
		t.Errorf("expected switched tenant member-a, got %q", member.TenantID)
	}
	if member.UserID != "u1" || member.Token != "tok" {
		t.Errorf("switch lost user identity: %+v", member)
	}
	if base.TenantID != "central" {
		t.Errorf("receiver mutated, tenant is now %q", base.TenantID)
	}
}

func TestInTenant_RestoresAfterError(t *testing.T) {
	base := Context{TenantID: "central"}

	wantErr := errors.New("inner failure")
	err := base.InTenant("member-b", func(tc Context) error {
		if tc.TenantID != "member-b" {
			t.Errorf("expected member-b inside switch, got %q", tc.TenantID)
		}
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("expected inner error to propagate, got %v", err)
	}
	if base.TenantID != "central" {
		t.Errorf("context not restored after error, tenant is %q", base.TenantID)
	}
}

func TestInTenant_RestoresAfterPanic(t *testing.T) {
	base := Context{TenantID: "central"}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = base.InTenant("member-c", func(Context) error {
			panic("boom")
		})
	}()

	if base.TenantID != "central" {
		t.Errorf("context not restored after panic, tenant is %q", base.TenantID)
	}
}

func TestFromContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected no execution context on empty context")
	}

	tc := Context{TenantID: "diku", UserID: "u9"}
	ctx := NewContext(context.Background(), tc)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected execution context to round-trip")
	}
	if got != tc {
		t.Errorf("expected %+v, got %+v", tc, got)
	}
}
