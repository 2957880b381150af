package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"quietdrop/internal/errs"
)

func TestKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"direct", errs.ErrTransport, errs.ErrTransport},
		{"wrapped", fmt.Errorf("decrypt: %w", errs.ErrAuthenticationFailure), errs.ErrAuthenticationFailure},
		{"double wrapped", fmt.Errorf("a: %w", fmt.Errorf("b: %w", errs.ErrEncoding)), errs.ErrEncoding},
		{"unknown", errors.New("boom"), nil},
		{"nil", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, errs.Kind(tc.err))
		})
	}
}
