package cv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/speclib/speclib/attribute"
	"github.com/speclib/speclib/errs"
)

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver()

	term, err := r.FindTermFor("MS:1000041")
	require.NoError(t, err)
	require.Equal(t, "charge state", term.Name)
	require.Equal(t, TypeInt, term.ValueType)

	_, err = r.FindTermFor("MS:9999999")
	require.ErrorIs(t, err, errs.ErrUnknownTerm)
}

func TestStaticResolver_Override(t *testing.T) {
	r := NewStaticResolver(Term{Accession: "MS:1000041", Name: "charge state", ValueType: TypeString})

	term, err := r.FindTermFor("MS:1000041")
	require.NoError(t, err)
	require.Equal(t, TypeString, term.ValueType)
}

func TestTerm_Coerce(t *testing.T) {
	tests := []struct {
		name string
		term Term
		raw  string
		want attribute.Value
	}{
		{"int", Term{ValueType: TypeInt}, "2", int64(2)},
		{"float", Term{ValueType: TypeFloat}, "30", float64(30)},
		{"string keeps digits", Term{ValueType: TypeString}, "1.0", "1.0"},
		{"term", Term{ValueType: TypeTerm}, "MS:1000422|beam-type CID", attribute.Term{Accession: "MS:1000422", Name: "beam-type CID"}},
		{"unknown falls back", Term{}, "42", int64(42)},
		{"bad int falls back", Term{ValueType: TypeInt}, "n/a", "n/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.term.Coerce(tt.raw))
		})
	}
}

func TestTerm_IsOfType(t *testing.T) {
	term := Term{Accession: "MS:1000422", Parents: []string{"MS:1000044"}}
	require.True(t, term.IsOfType("MS:1000422"))
	require.True(t, term.IsOfType("MS:1000044"))
	require.False(t, term.IsOfType("MS:1000041"))
}
