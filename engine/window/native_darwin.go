//go:build darwin

package window

import "github.com/go-gl/glfw/v3.3/glfw"

// nativeHandles returns no display and the NSWindow of the window.
func nativeHandles(win *glfw.Window) (uintptr, uintptr) {
	return 0, uintptr(win.GetCocoaWindow())
}
