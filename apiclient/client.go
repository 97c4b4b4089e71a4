// Package apiclient is a client for the VIIPER management API and its
// per-device streams.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Alia5/padbridge/apitypes"
)

// Client issues VIIPER API requests over a Transport.
type Client struct{ transport *Transport }

// New creates a client for addr. A nil cfg uses DefaultConfig.
func New(addr string, cfg *Config) *Client { return &Client{transport: NewTransport(addr, cfg)} }

// WithTransport creates a client over t.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// CreateOptions overrides the USB identity of a new virtual device.
type CreateOptions struct {
	IdVendor  *uint16
	IdProduct *uint16
}

// Ping returns the server identity and version.
func (c *Client) Ping(ctx context.Context) (*apitypes.PingResponse, error) {
	return call[apitypes.PingResponse](ctx, c, "ping", nil, nil)
}

// BusCreate allocates a virtual bus. busID 0 lets the server choose.
func (c *Client) BusCreate(ctx context.Context, busID uint32) (*apitypes.BusCreateResponse, error) {
	return call[apitypes.BusCreateResponse](ctx, c, "bus/create", strconv.FormatUint(uint64(busID), 10), nil)
}

// BusRemove removes a bus and every device on it.
func (c *Client) BusRemove(ctx context.Context, busID uint32) (*apitypes.BusRemoveResponse, error) {
	return call[apitypes.BusRemoveResponse](ctx, c, "bus/remove", strconv.FormatUint(uint64(busID), 10), nil)
}

// BusList lists the active buses.
func (c *Client) BusList(ctx context.Context) (*apitypes.BusListResponse, error) {
	return call[apitypes.BusListResponse](ctx, c, "bus/list", nil, nil)
}

// DeviceAdd creates a device of devType ("dualshock4", "keyboard", ...).
func (c *Client) DeviceAdd(ctx context.Context, busID uint32, devType string, o *CreateOptions) (*apitypes.Device, error) {
	if o == nil {
		o = &CreateOptions{}
	}
	req := apitypes.DeviceCreateRequest{Type: &devType, IdVendor: o.IdVendor, IdProduct: o.IdProduct}
	return call[apitypes.Device](ctx, c, "bus/{id}/add", req, busParams(busID))
}

// DeviceRemove removes device devID from a bus and closes its stream.
func (c *Client) DeviceRemove(ctx context.Context, busID uint32, devID string) (*apitypes.DeviceRemoveResponse, error) {
	return call[apitypes.DeviceRemoveResponse](ctx, c, "bus/{id}/remove", devID, busParams(busID))
}

// DevicesList lists the devices on a bus.
func (c *Client) DevicesList(ctx context.Context, busID uint32) (*apitypes.DevicesListResponse, error) {
	return call[apitypes.DevicesListResponse](ctx, c, "bus/{id}/list", nil, busParams(busID))
}

func busParams(busID uint32) map[string]string {
	return map[string]string{"id": strconv.FormatUint(uint64(busID), 10)}
}

func call[T any](ctx context.Context, c *Client, path string, payload any, params map[string]string) (*T, error) {
	raw, err := c.transport.Do(ctx, path, payload, params)
	if err != nil {
		return nil, err
	}
	return parse[T](raw)
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
