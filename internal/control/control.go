// Package control exposes the running dock on the D-Bus session bus and
// provides the client used by CLI commands.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/bryanchriswhite/hyprdock/internal/dock"
	"github.com/bryanchriswhite/hyprdock/internal/logger"
)

const (
	BusName    = "io.github.hyprdock"
	ObjectPath = dbus.ObjectPath("/io/github/hyprdock")
	Interface  = "io.github.hyprdock.Dock"
)

// ErrNameTaken is returned when another dock already owns BusName.
var ErrNameTaken = errors.New("dock bus name already owned")

// Handler carries out control requests. Implementations hand the work to
// the event loop and return without waiting for it.
type Handler interface {
	ToggleSearch()
	Refresh()
	Status() dock.Status
}

// object is the exported D-Bus object. Method names are the wire names.
type object struct {
	h Handler
}

func (o *object) ToggleSearch() *dbus.Error {
	logger.WithComponent("control").Debug().Msg("ToggleSearch requested")
	o.h.ToggleSearch()
	return nil
}

func (o *object) Refresh() *dbus.Error {
	logger.WithComponent("control").Debug().Msg("Refresh requested")
	o.h.Refresh()
	return nil
}

func (o *object) Status() (string, *dbus.Error) {
	return o.h.Status().String(), nil
}

var node = &introspect.Node{
	Name: string(ObjectPath),
	Interfaces: []introspect.Interface{
		introspect.IntrospectData,
		{
			Name: Interface,
			Methods: []introspect.Method{
				{Name: "ToggleSearch"},
				{Name: "Refresh"},
				{Name: "Status", Args: []introspect.Arg{{Name: "status", Type: "s", Direction: "out"}}},
			},
		},
	},
}

// Service is an exported dock object holding the bus name.
type Service struct {
	conn  *dbus.Conn
	owned bool
}

// ServeSession connects to the session bus and serves h there.
func ServeSession(h Handler) (*Service, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	s, err := Serve(conn, h)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Serve exports h on conn and claims BusName. The caller keeps ownership
// of conn until Close.
func Serve(conn *dbus.Conn, h Handler) (*Service, error) {
	if err := conn.Export(&object{h: h}, ObjectPath, Interface); err != nil {
		return nil, fmt.Errorf("failed to export dock object: %w", err)
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ObjectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, fmt.Errorf("failed to export introspection: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, ErrNameTaken
	}

	logger.WithComponent("control").Info().
		Str("name", BusName).
		Str("path", string(ObjectPath)).
		Msg("Control service registered")
	return &Service{conn: conn, owned: true}, nil
}

// Close releases the bus name and closes the connection.
func (s *Service) Close() error {
	if s.owned {
		s.conn.ReleaseName(BusName)
		s.owned = false
	}
	return s.conn.Close()
}

// Client calls a running dock.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// DialSession connects to the dock on the session bus.
func DialSession() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an existing bus connection.
func NewClient(conn *dbus.Conn) *Client {
	return &Client{conn: conn, obj: conn.Object(BusName, ObjectPath)}
}

// ToggleSearch shows or hides the application search.
func (c *Client) ToggleSearch(ctx context.Context) error {
	return c.call(ctx, "ToggleSearch").Err
}

// Refresh asks the dock to re-query running windows.
func (c *Client) Refresh(ctx context.Context) error {
	return c.call(ctx, "Refresh").Err
}

// Status fetches the dock's connection status.
func (c *Client) Status(ctx context.Context) (dock.Status, error) {
	var raw string
	if err := c.call(ctx, "Status").Store(&raw); err != nil {
		return dock.Status{}, err
	}
	return ParseStatus(raw)
}

// Close closes the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string) *dbus.Call {
	call := c.obj.CallWithContext(ctx, Interface+"."+method, 0)
	if call.Err != nil {
		var dbusErr dbus.Error
		if errors.As(call.Err, &dbusErr) && dbusErr.Name == "org.freedesktop.DBus.Error.ServiceUnknown" {
			call.Err = fmt.Errorf("dock is not running: %w", call.Err)
		}
	}
	return call
}

// ParseStatus decodes the JSON returned by the Status method.
func ParseStatus(raw string) (dock.Status, error) {
	var st dock.Status
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return dock.Status{}, fmt.Errorf("invalid status reply: %w", err)
	}
	return st, nil
}
