package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     Key
		wantErr error
	}{
		{"single segment", Key{"graph"}, nil},
		{"nested", Key{"tenants", "acme"}, nil},
		{"nil key", nil, ErrInvalidKey},
		{"empty key", Key{}, ErrInvalidKey},
		{"empty segment", Key{"a", ""}, ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateKey() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateKey() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    *Options
		wantErr error
	}{
		{"nil options", nil, nil},
		{"zero options", &Options{}, nil},
		{"eventual with ttl", &Options{Consistency: ConsistencyEventual, ExpireIn: time.Minute}, nil},
		{"unknown format is not checked here", &Options{Format: "text/turtle"}, nil},
		{"negative ttl", &Options{ExpireIn: -time.Second}, ErrInvalidOptions},
		{"bad consistency", &Options{Consistency: Consistency(7)}, ErrInvalidConsistency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOptions(tt.opts)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateOptions() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateOptions() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseError_Is(t *testing.T) {
	err := error(&ParseError{Format: "nquads", Position: "quad 3", Err: errors.New("bad term")})

	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ParseError to match ErrParse")
	}
	if errors.Is(err, ErrQuery) {
		t.Fatalf("ParseError must not match ErrQuery")
	}
	want := "parse nquads at quad 3: bad term"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestQueryError_Unwrap(t *testing.T) {
	cause := errors.New("unexpected token")
	err := error(&QueryError{Query: "SELEC", Err: cause})

	if !errors.Is(err, ErrQuery) {
		t.Fatalf("expected QueryError to match ErrQuery")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected QueryError to unwrap to its cause")
	}
}
