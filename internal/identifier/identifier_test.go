package identifier

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	canonical := ID("AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE")

	cases := []struct {
		name string
		in   string
		want ID
		ok   bool
	}{
		{"canonical", "AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE", canonical, true},
		{"lowercase", "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee", canonical, true},
		{"mixed case", "aAaAaAaA-BbBb-cCcC-DdDd-EeEeEeEeEeEe", canonical, true},
		{"braced", "{AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE}", canonical, true},
		{"braced lowercase", "{aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee}", canonical, true},
		{"surrounding space", "  AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE ", canonical, true},
		{"empty", "", "", false},
		{"garbage", "not-an-identifier", "", false},
		{"truncated", "AAAAAAAA-BBBB-CCCC-DDDD", "", false},
		{"unbalanced brace", "{AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE", canonical, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Normalize(tc.in)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestFindAll(t *testing.T) {
	t.Run("braced and bare in one value", func(t *testing.T) {
		text := "Related: {AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE}, and F1111111-2222-3333-4444-555555555555"
		got := FindAll(text)
		want := []ID{
			"AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE",
			"F1111111-2222-3333-4444-555555555555",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("discovered ids mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("duplicates collapse to first appearance", func(t *testing.T) {
		text := "{aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee} AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE"
		got := FindAll(text)
		require.Equal(t, []ID{"AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE"}, got)
	})

	t.Run("no matches", func(t *testing.T) {
		require.Nil(t, FindAll("plain prose with no references"))
	})
}

func TestSet(t *testing.T) {
	a := MustNormalize("AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE")
	b := MustNormalize("F1111111-2222-3333-4444-555555555555")

	s := NewSet(a)
	require.True(t, s.Contains(a))
	require.False(t, s.Add(a), "re-adding a member must not grow the set")
	require.True(t, s.Add(b))
	require.False(t, s.Add(""), "zero identifiers are never members")
	require.Equal(t, []ID{a, b}, s.Values())
	require.Equal(t, 2, s.Len())
}
