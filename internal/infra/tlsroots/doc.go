// Package tlsroots builds the server TLS configuration.
//
//   - keypair.go: PEM (optionally encrypted) and PKCS#12 key pair loading
//   - server.go: tls.Config construction, minimum version and security level
//   - selfsigned.go: self-signed certificate generation for first start
//   - watcher.go: certificate hot-reload via fsnotify
package tlsroots
