package control

import (
	"strings"
	"testing"

	"github.com/godbus/dbus/v5/introspect"

	"github.com/bryanchriswhite/hyprdock/internal/dock"
)

type fakeHandler struct {
	toggles   int
	refreshes int
	status    dock.Status
}

func (f *fakeHandler) ToggleSearch()       { f.toggles++ }
func (f *fakeHandler) Refresh()            { f.refreshes++ }
func (f *fakeHandler) Status() dock.Status { return f.status }

func TestObject_DispatchesToHandler(t *testing.T) {
	h := &fakeHandler{status: dock.Status{Phase: "connected", Events: 7, Pinned: 3}}
	o := &object{h: h}

	if err := o.ToggleSearch(); err != nil {
		t.Fatalf("ToggleSearch: %v", err)
	}
	if err := o.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	raw, derr := o.Status()
	if derr != nil {
		t.Fatalf("Status: %v", derr)
	}
	if h.toggles != 1 || h.refreshes != 1 {
		t.Fatalf("toggles = %d, refreshes = %d", h.toggles, h.refreshes)
	}

	st, err := ParseStatus(raw)
	if err != nil {
		t.Fatalf("ParseStatus: %v", err)
	}
	if st.Phase != "connected" || st.Events != 7 || st.Pinned != 3 {
		t.Fatalf("status = %+v", st)
	}
}

func TestParseStatus_Invalid(t *testing.T) {
	if _, err := ParseStatus("not json"); err == nil {
		t.Fatal("expected an error for a malformed reply")
	}
}

func TestIntrospection(t *testing.T) {
	xml, derr := introspect.NewIntrospectable(node).Introspect()
	if derr != nil {
		t.Fatalf("Introspect: %v", derr)
	}
	for _, want := range []string{Interface, `"ToggleSearch"`, `"Refresh"`, `"Status"`, `type="s"`} {
		if !strings.Contains(xml, want) {
			t.Errorf("introspection data missing %s:\n%s", want, xml)
		}
	}
}
