//go:build !windows

package gateway

var platformBenign []error
