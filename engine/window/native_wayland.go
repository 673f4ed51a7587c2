//go:build linux && wayland && !android

package window

import (
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// nativeHandles returns the wl_display and wl_surface of the window.
func nativeHandles(win *glfw.Window) (uintptr, uintptr) {
	return uintptr(unsafe.Pointer(glfw.GetWaylandDisplay())), uintptr(unsafe.Pointer(win.GetWaylandWindow()))
}
