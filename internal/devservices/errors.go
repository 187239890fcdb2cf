package devservices

import (
	"errors"
	"fmt"
	"strings"
)

// ServiceError is the failure of one container.
type ServiceError struct {
	Service string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// StartError aggregates the failures of one start attempt. Dev services are not running
// after it is returned.
type StartError struct {
	Failures []*ServiceError
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start dev services (%s): %v", strings.Join(e.FailedServices(), ", "), e.Unwrap())
}

// Unwrap joins the per-service failures so errors.Is and errors.As see each of them.
func (e *StartError) Unwrap() error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// FailedServices returns the services that did not start, in attempt order.
func (e *StartError) FailedServices() []string {
	out := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Service)
	}
	return out
}
