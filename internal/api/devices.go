package api

import (
	"context"
	"net/http"
	"net/url"
)

// ListDevices returns a page of fingerprint devices.
func (c *Client) ListDevices(ctx context.Context, p ListParams) (DevicePage, error) {
	var out DevicePage
	err := c.get(ctx, "devices.list", "/devices", listQuery(p), &out)
	return out, err
}

// GetDevice returns one device.
func (c *Client) GetDevice(ctx context.Context, id string) (Device, error) {
	var out struct {
		Device Device `json:"device"`
	}
	err := c.get(ctx, "devices.get", "/devices/"+url.PathEscape(id), nil, &out)
	return out.Device, err
}

// CreateDevice registers a device.
func (c *Client) CreateDevice(ctx context.Context, in DeviceInput) error {
	return c.do(ctx, "devices.create", http.MethodPost, "/devices", nil, in, nil)
}

// UpdateDevice updates a device. The hardware id cannot change.
func (c *Client) UpdateDevice(ctx context.Context, id string, in DeviceInput) error {
	in.DeviceID = ""
	return c.do(ctx, "devices.update", http.MethodPut, "/devices/"+url.PathEscape(id), nil, in, nil)
}

// DeleteDevice removes a device.
func (c *Client) DeleteDevice(ctx context.Context, id string) error {
	return c.do(ctx, "devices.delete", http.MethodDelete, "/devices/"+url.PathEscape(id), nil, nil, nil)
}

// UpdateDeviceStatus reports a device online or offline.
func (c *Client) UpdateDeviceStatus(ctx context.Context, deviceID string, st DeviceStatus) error {
	return c.do(ctx, "devices.status", http.MethodPatch, "/devices/"+url.PathEscape(deviceID)+"/status", nil, st, nil)
}
