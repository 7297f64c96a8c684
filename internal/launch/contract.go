// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultServer is the production WSGI server binary.
	DefaultServer = "gunicorn"
	// DefaultApp is the WSGI application object, in module:object form.
	DefaultApp = "dashboard:app"
	// DefaultHost binds all interfaces.
	DefaultHost = "0.0.0.0"
	// DefaultPort is the port the dashboard container exposes.
	DefaultPort Port = 5000
	// DefaultWorkers is the fixed worker count.
	DefaultWorkers = 1
	// DefaultTimeout is the per-request worker timeout.
	DefaultTimeout = 120 * time.Second
)

var (
	// ErrInvalidPort is the sentinel error wrapped by InvalidPortError.
	ErrInvalidPort = errors.New("invalid port")
	// ErrInvalidContract is the sentinel error wrapped by InvalidContractError.
	ErrInvalidContract = errors.New("invalid launch contract")
)

type (
	// Port is a TCP port number. A valid port must be greater than zero.
	Port uint16

	// InvalidPortError is returned when a Port value is zero.
	InvalidPortError struct {
		Value Port
	}

	// Contract is the fixed WSGI server invocation.
	// The bind address is derived from Host and Port; see Bind.
	Contract struct {
		Server  string        `json:"server" yaml:"server" toml:"server"`
		App     string        `json:"app" yaml:"app" toml:"app"`
		Host    string        `json:"host" yaml:"host" toml:"host"`
		Port    Port          `json:"port" yaml:"port" toml:"port"`
		Workers int           `json:"workers" yaml:"workers" toml:"workers"`
		Timeout time.Duration `json:"-" yaml:"-" toml:"-"`
	}

	// InvalidContractError is returned when a Contract has one or more invalid fields.
	InvalidContractError struct {
		FieldErrs []error
	}
)

// String returns the decimal port number.
func (p Port) String() string { return strconv.Itoa(int(p)) }

// Validate returns an error if the port is zero.
func (p Port) Validate() error {
	if p == 0 {
		return &InvalidPortError{Value: p}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidPortError) Error() string {
	return fmt.Sprintf("invalid port %d: must be greater than zero", e.Value)
}

// Unwrap returns ErrInvalidPort for errors.Is() compatibility.
func (e *InvalidPortError) Unwrap() error { return ErrInvalidPort }

// Error implements the error interface.
func (e *InvalidContractError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrs))
	for _, err := range e.FieldErrs {
		msgs = append(msgs, err.Error())
	}
	return "invalid launch contract: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidContract for errors.Is() compatibility.
func (e *InvalidContractError) Unwrap() error { return ErrInvalidContract }

// DefaultContract returns the dashboard's launch contract.
func DefaultContract() Contract {
	return Contract{
		Server:  DefaultServer,
		App:     DefaultApp,
		Host:    DefaultHost,
		Port:    DefaultPort,
		Workers: DefaultWorkers,
		Timeout: DefaultTimeout,
	}
}

// Validate checks every field of the contract.
func (c Contract) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server) == "" {
		errs = append(errs, errors.New("server must be non-empty"))
	}
	if mod, obj, ok := strings.Cut(c.App, ":"); !ok || mod == "" || obj == "" {
		errs = append(errs, fmt.Errorf("app %q must be in module:object form", c.App))
	}
	if c.Host == "" || (net.ParseIP(c.Host) == nil && strings.ContainsAny(c.Host, " :/")) {
		errs = append(errs, fmt.Errorf("host %q is not a bindable address", c.Host))
	}
	if err := c.Port.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Timeout < time.Second || c.Timeout%time.Second != 0 {
		errs = append(errs, fmt.Errorf("timeout %s must be a whole number of seconds", c.Timeout))
	}
	if len(errs) > 0 {
		return &InvalidContractError{FieldErrs: errs}
	}
	return nil
}

// Bind returns the host:port bind address.
func (c Contract) Bind() string {
	return net.JoinHostPort(c.Host, c.Port.String())
}

// TimeoutSeconds returns the timeout in whole seconds.
func (c Contract) TimeoutSeconds() int {
	return int(c.Timeout / time.Second)
}

// Argv renders the server command line, e.g.
// gunicorn --bind 0.0.0.0:5000 --workers 1 --timeout 120 dashboard:app
func (c Contract) Argv() []string {
	return []string{
		c.Server,
		"--bind", c.Bind(),
		"--workers", strconv.Itoa(c.Workers),
		"--timeout", strconv.Itoa(c.TimeoutSeconds()),
		c.App,
	}
}
