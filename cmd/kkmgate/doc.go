// Package main provides the entry point for kkmgate.
//
// kkmgate is an HTTPS gateway that sits in front of fiscal cash registers
// and exposes their operations to local point-of-sale software. It runs as
// a Windows service or as a foreground process:
//
//	kkmgate --config kkmgate.yaml foreground
//	kkmgate --config kkmgate.yaml install
//	kkmgate gen-cert --host pos-01.local
package main
