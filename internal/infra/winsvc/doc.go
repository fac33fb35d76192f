// Package winsvc runs kkmgate under the Windows service control manager and
// manages its service registration.
//
// On other platforms every operation returns ErrUnsupported and IsService
// reports false, so the foreground mode keeps working everywhere.
package winsvc
