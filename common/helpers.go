package common

import (
	"os"
	"os/user"
)

func IsRunningAsRoot() bool {
	usr, err := user.Current()
	return err == nil && usr.Username == "root"
}

// gpioNodes lists the device node each GPIO backend opens.
var gpioNodes = map[string]string{
	"":     "/dev/gpiomem",
	"rpio": "/dev/gpiomem",
	"embd": "/sys/class/gpio/export",
}

// CanAccessGPIO reports whether the current user can open the lines of the
// given backend. Unknown backends (the simulator) need nothing.
func CanAccessGPIO(backend string) bool {
	node, ok := gpioNodes[backend]
	if !ok {
		return true
	}
	if IsRunningAsRoot() {
		return true
	}
	f, err := os.OpenFile(node, os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
