// Package credential defines the credential record kept by the store.
//
// A credential is identified by "service:username". Two credentials may share
// a service or a username, but not both.
package credential

import "errors"

var (
	ErrServiceRequired  = errors.New("credential: service name required")
	ErrUsernameRequired = errors.New("credential: username required")
)

// Credential is a single stored login. Treat values as immutable.
type Credential struct {
	ServiceName string
	Username    string
	Password    string
	OtherInfo   string
}

// Option configures optional credential fields.
type Option func(*Credential)

// WithOtherInfo sets the free-form note.
func WithOtherInfo(info string) Option {
	return func(c *Credential) {
		c.OtherInfo = info
	}
}

// New creates a credential. OtherInfo defaults to the empty string.
func New(serviceName, username, password string, opts ...Option) Credential {
	c := Credential{
		ServiceName: serviceName,
		Username:    username,
		Password:    password,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Identity returns the uniqueness key "service:username".
func (c Credential) Identity() string {
	return c.ServiceName + ":" + c.Username
}

// String returns the identity. The password is never part of it.
func (c Credential) String() string {
	return c.Identity()
}

// Validate reports whether the credential is well formed.
func (c Credential) Validate() error {
	if c.ServiceName == "" {
		return ErrServiceRequired
	}
	if c.Username == "" {
		return ErrUsernameRequired
	}
	return nil
}

// Record is the serialized form of a Credential. The JSON field names are
// part of the on-disk format and must not change.
type Record struct {
	ServiceName string `json:"service_name"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	OtherInfo   string `json:"other_info"`
}

// Record returns the serialized form of c.
func (c Credential) Record() Record {
	return Record{
		ServiceName: c.ServiceName,
		Username:    c.Username,
		Password:    c.Password,
		OtherInfo:   c.OtherInfo,
	}
}

// FromRecord materializes a Credential from its serialized form.
func FromRecord(r Record) Credential {
	return Credential{
		ServiceName: r.ServiceName,
		Username:    r.Username,
		Password:    r.Password,
		OtherInfo:   r.OtherInfo,
	}
}
