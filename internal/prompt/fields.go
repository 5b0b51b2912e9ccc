package prompt

import (
	"context"
	"fmt"

	"github.com/benaskins/pwdy/internal/credential"
)

// ServiceName implements credential.FieldSupplier.
func (p *Prompter) ServiceName(ctx context.Context) (string, error) {
	return p.Line(ctx, "Service name")
}

// Username implements credential.FieldSupplier.
func (p *Prompter) Username(ctx context.Context) (string, error) {
	return p.Line(ctx, "Username")
}

// OtherInfo implements credential.FieldSupplier.
func (p *Prompter) OtherInfo(ctx context.Context) (string, error) {
	return p.Line(ctx, "Other info")
}

// Password implements credential.FieldSupplier. The password is asked for
// twice.
func (p *Prompter) Password(ctx context.Context, service, username string) (string, error) {
	return p.NewSecret(ctx, fmt.Sprintf("Password for %s@%s", username, service))
}

var _ credential.FieldSupplier = (*Prompter)(nil)
