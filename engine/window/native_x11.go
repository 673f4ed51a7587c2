//go:build (linux && !wayland && !android) || freebsd

package window

import (
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// nativeHandles returns the Xlib display and X11 window id.
func nativeHandles(win *glfw.Window) (uintptr, uintptr) {
	return uintptr(unsafe.Pointer(glfw.GetX11Display())), uintptr(win.GetX11Window())
}
