//go:build windows

package window

import (
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// nativeHandles returns no display and the HWND of the window.
func nativeHandles(win *glfw.Window) (uintptr, uintptr) {
	return 0, uintptr(unsafe.Pointer(win.GetWin32Window()))
}
