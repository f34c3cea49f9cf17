package orders

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanDelete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		roles   []string
		status  Status
		want    DeleteMode
		wantErr bool
	}{
		{name: "owner deletes shipped permanently", roles: []string{"owner"}, status: StatusShipped, want: DeletePermanent},
		{name: "owner deletes pending permanently", roles: []string{"owner"}, status: StatusPending, want: DeletePermanent},
		{name: "admin soft deletes pending", roles: []string{"admin"}, status: StatusPending, want: DeleteSoft},
		{name: "confirmer soft deletes confirmed", roles: []string{"confirmer"}, status: StatusConfirmed, want: DeleteSoft},
		{name: "admin cannot delete shipped", roles: []string{"admin"}, status: StatusShipped, wantErr: true},
		{name: "admin cannot delete in transit", roles: []string{"admin"}, status: StatusInTransit, wantErr: true},
		{name: "support cannot delete at all", roles: []string{"support"}, status: StatusPending, wantErr: true},
		{name: "no roles", roles: nil, status: StatusPending, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			mode, err := CanDelete(tc.roles, tc.status)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrDeleteForbidden)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, mode)
		})
	}
}

func TestCanAssignCarrier(t *testing.T) {
	t.Parallel()

	require.True(t, CanAssignCarrier([]string{"logistics"}, StatusConfirmed))
	require.True(t, CanAssignCarrier([]string{"confirmer"}, StatusIncident))
	require.False(t, CanAssignCarrier([]string{"logistics"}, StatusShipped))
	require.False(t, CanAssignCarrier([]string{"owner"}, StatusDelivered))
	require.False(t, CanAssignCarrier([]string{"support"}, StatusPending))
}
