package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their configuration key rather than the Go name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Verify validates the configuration.
func Verify(cfg *GatewayConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fieldError(verrs[0])
		}
		return err
	}
	if err := verifyTLS(&cfg.TLS); err != nil {
		return err
	}
	return verifyStatic(&cfg.Static)
}

// fieldError turns a validator error into "section.key: reason".
func fieldError(fe validator.FieldError) error {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	if fe.Param() != "" {
		return fmt.Errorf("%s: must satisfy %s=%s (got %v)", ns, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Errorf("%s: %s", ns, fe.Tag())
}

// IsPKCS12 reports whether the certificate file is a PKCS#12 bundle.
func IsPKCS12(certFile string) bool {
	switch strings.ToLower(filepath.Ext(certFile)) {
	case ".pfx", ".p12":
		return true
	}
	return false
}

func verifyTLS(cfg *TLSSection) error {
	if !IsPKCS12(cfg.CertFile) && cfg.KeyFile == "" {
		return errors.New("tls.key_file is required for PEM certificates")
	}
	if _, err := os.Stat(cfg.CertFile); err != nil {
		return fmt.Errorf("tls.cert_file: %w", err)
	}
	if cfg.KeyFile != "" && !IsPKCS12(cfg.CertFile) {
		if _, err := os.Stat(cfg.KeyFile); err != nil {
			return fmt.Errorf("tls.key_file: %w", err)
		}
	}
	return nil
}

func verifyStatic(cfg *StaticSection) error {
	if cfg.Root == "" {
		return nil
	}
	if strings.ContainsAny(cfg.Index, `/\`) {
		return errors.New("static.index must be a file name")
	}
	return nil
}
