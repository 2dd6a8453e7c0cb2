package domain

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalSubjectID(t *testing.T) {
	tests := []struct {
		name        string
		productID   string
		granularity Granularity
		batch       string
		serial      string
		want        string
		wantErr     error
	}{
		{
			name:        "product class is the id itself",
			productID:   "GTIN:123",
			granularity: GranularityProductClass,
			want:        "GTIN:123",
		},
		{
			name:        "batch appends the batch number",
			productID:   "GTIN:123",
			granularity: GranularityBatch,
			batch:       "LOT-1",
			want:        "GTIN:123#LOT-1",
		},
		{
			name:        "item appends the serial number",
			productID:   "GTIN:123",
			granularity: GranularityItem,
			serial:      "SN-1",
			want:        "GTIN:123#SN-1",
		},
		{
			name:        "batch without batch number",
			productID:   "GTIN:123",
			granularity: GranularityBatch,
			wantErr:     ErrMissingQualifier,
		},
		{
			name:        "item without serial number",
			productID:   "GTIN:123",
			granularity: GranularityItem,
			batch:       "LOT-1",
			wantErr:     ErrMissingQualifier,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CanonicalSubjectID(tc.productID, tc.granularity, tc.batch, tc.serial)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := CanonicalSubjectID("", GranularityProductClass, "", "")
	assert.Error(t, err)
	_, err = CanonicalSubjectID("GTIN:123", Granularity("Pallet"), "", "")
	assert.Error(t, err)
}

func TestSubjectIDHashIsStable(t *testing.T) {
	want := sha256.Sum256([]byte("GTIN:123#LOT-1"))
	assert.Equal(t, want, SubjectIDHash("GTIN:123#LOT-1"))
	assert.NotEqual(t, SubjectIDHash("GTIN:123"), SubjectIDHash("GTIN:123#LOT-1"))
}

func TestDteRoleTrustRelevance(t *testing.T) {
	assert.True(t, DteRoleOutput.TrustRelevant())
	assert.True(t, DteRoleParent.TrustRelevant())
	assert.True(t, DteRoleEpc.TrustRelevant())
	assert.False(t, DteRoleInput.TrustRelevant())
	assert.False(t, DteRole("component").TrustRelevant())
}
