package rt

import (
	"fmt"

	"github.com/notargets/cmdgraph/graph"
)

// Context owns an engine binding. Kernels and command buffers created
// against the same Context may be combined; mixing contexts is an error
// surfaced by the command-buffer layer.
type Context struct {
	Engine graph.Engine

	rc RefCount
}

// NewContext creates a context over the given engine.
func NewContext(eng graph.Engine) *Context {
	c := &Context{Engine: eng}
	c.rc.Init()
	return c
}

// Retain takes an additional handle on the context.
func (c *Context) Retain() { c.rc.Retain() }

// Release drops one handle. The context holds no destructible state of its
// own; the counting exists so owners such as command buffers can follow the
// same discipline they apply to their own lifetime.
func (c *Context) Release() {
	c.rc.DecExternal()
	c.rc.DecInternal()
}

// RefCount returns the external reference count.
func (c *Context) RefCount() int32 { return c.rc.External() }

// Device opens the execution target with the given ordinal.
func (c *Context) Device(ordinal int) (*Device, error) {
	gd, err := c.Engine.Device(ordinal)
	if err != nil {
		return nil, fmt.Errorf("rt: opening device %d: %w", ordinal, err)
	}
	d := &Device{Context: c, G: gd}
	d.rc.Init()
	return d, nil
}

// Device is one execution target.
type Device struct {
	Context *Context
	G       graph.Device

	rc RefCount
}

// Retain takes an additional handle on the device.
func (d *Device) Retain() { d.rc.Retain() }

// Release drops one handle, freeing the underlying engine device when the
// last structural reference goes away.
func (d *Device) Release() {
	d.rc.DecExternal()
	if d.rc.DecInternal() == 0 {
		d.G.Free()
	}
}

// Limits reports the launch-shape limits of the device.
func (d *Device) Limits() graph.Limits { return d.G.Limits() }
