package transport

import "golang.org/x/sys/unix"

// ioctlGetTermios/ioctlSetTermios select the plain (non-termios2)
// get/set-attributes ioctls; Termios already carries Ispeed/Ospeed on
// Linux's struct layout so the simpler pair is sufficient here.
const (
	ioctlGetTermios = unix.TCGETS
	ioctlSetTermios = unix.TCSETS
)
