package credential

import (
	"context"
	"fmt"
)

// FieldSupplier provides values for fields the caller left empty.
// Implementations usually prompt a user; the builder does not care how.
type FieldSupplier interface {
	ServiceName(ctx context.Context) (string, error)
	Username(ctx context.Context) (string, error)
	OtherInfo(ctx context.Context) (string, error)
	// Password is asked last so the supplier can name the credential.
	Password(ctx context.Context, serviceName, username string) (string, error)
}

// Build completes partial by asking supplier for every empty field and
// returns the validated result. OtherInfo may legitimately stay empty.
func Build(ctx context.Context, partial Credential, supplier FieldSupplier) (Credential, error) {
	c := partial

	if c.ServiceName == "" {
		v, err := supplier.ServiceName(ctx)
		if err != nil {
			return Credential{}, fmt.Errorf("service name: %w", err)
		}
		c.ServiceName = v
	}
	if c.Username == "" {
		v, err := supplier.Username(ctx)
		if err != nil {
			return Credential{}, fmt.Errorf("username: %w", err)
		}
		c.Username = v
	}
	if c.OtherInfo == "" {
		v, err := supplier.OtherInfo(ctx)
		if err != nil {
			return Credential{}, fmt.Errorf("other info: %w", err)
		}
		c.OtherInfo = v
	}

	if err := c.Validate(); err != nil {
		return Credential{}, err
	}

	if c.Password == "" {
		v, err := supplier.Password(ctx, c.ServiceName, c.Username)
		if err != nil {
			return Credential{}, fmt.Errorf("password: %w", err)
		}
		c.Password = v
	}
	return c, nil
}
