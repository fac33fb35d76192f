//go:build windows

package gateway

import "syscall"

// Winsock codes for peers that vanished mid-exchange.
var platformBenign = []error{
	syscall.WSAECONNABORTED,
	syscall.WSAECONNRESET,
	syscall.Errno(10057), // WSAENOTCONN
	syscall.Errno(10061), // WSAECONNREFUSED
	syscall.Errno(10058), // WSAESHUTDOWN
}
