package jobs

import "testing"

type stubHandler struct {
	jobType string
}

func (h *stubHandler) Type() string          { return h.jobType }
func (h *stubHandler) Run(jc *Context) error { return nil }

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	if err := r.Register(nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
	if err := r.Register(&stubHandler{jobType: ""}); err == nil {
		t.Fatal("expected error for empty job type")
	}

	h := &stubHandler{jobType: "email_delivery"}
	if err := r.Register(h); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(&stubHandler{jobType: "email_delivery"}); err == nil {
		t.Fatal("expected error for duplicate registration")
	}

	got, ok := r.Get("email_delivery")
	if !ok {
		t.Fatal("expected handler to be registered")
	}
	if got != h {
		t.Fatal("Get returned a different handler")
	}
	if _, ok := r.Get("unknown"); ok {
		t.Fatal("expected miss for unregistered job type")
	}
}
