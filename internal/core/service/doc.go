// Package service runs operations against fiscal registers.
//
// DeviceService resolves a serial number to connection parameters, makes
// sure only one operation runs per device at a time and hands the work to a
// Driver. Emulator is the in-process driver used for development, tests and
// demo installations without hardware.
package service
