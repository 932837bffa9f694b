package dupindex

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/terraed/backend/config"
	"github.com/terraed/backend/internal/repository"
	"github.com/terraed/backend/pkg/testutil"
)

func TestBandsAndDistance(t *testing.T) {
	h := uint64(0x0123_4567_89ab_cdef)
	require.Equal(t, [4]int{0x0123, 0x4567, 0x89ab, 0xcdef}, Bands(h))

	require.Equal(t, 0, Distance(h, h))
	require.Equal(t, 3, Distance(h, h^0b1011))
	require.Equal(t, 64, Distance(0, ^uint64(0)))
	require.Equal(t, 1.0, Similarity(0))
	require.Equal(t, 0.5, Similarity(32))

	s := FormatHash(^uint64(0))
	require.Equal(t, "ffffffffffffffff", s)
	parsed, err := ParseHash(s)
	require.NoError(t, err)
	require.Equal(t, ^uint64(0), parsed)
}

func TestScopeKey(t *testing.T) {
	require.Equal(t, "quest_user:q1:u1", ScopeKey(ScopeQuestUser, "q1", "u1"))
	require.Equal(t, "quest:q1", ScopeKey(ScopeQuest, "q1", "u1"))
	require.Equal(t, "global", ScopeKey(ScopeGlobal, "q1", "u1"))
}

func TestIndex_Nearest(t *testing.T) {
	ctx := testutil.NewMockContext()
	idx := New(repository.NewMediaHashRepository())

	base := uint64(0xf0f0_f0f0_0f0f_0f0f)
	require.NoError(t, idx.Insert(ctx, "scope1", "s1", base))
	require.NoError(t, idx.Insert(ctx, "scope2", "s2", base))

	// Inserting the same submission twice is a no-op.
	require.NoError(t, idx.Insert(ctx, "scope1", "s1", base))

	// 3 flipped bits spread over every band still share one band.
	near := base ^ (1 << 63) ^ (1 << 40) ^ (1 << 20)
	m, err := idx.Nearest(ctx, "scope1", near)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "s1", m.SubmissionID)
	require.Equal(t, 3, m.Distance)
	require.True(t, IsDuplicate(ctx, m))

	// 4 flipped bits, one per band, cannot be found by band lookup and are
	// not a duplicate anyway.
	far := near ^ 1
	m, err = idx.Nearest(ctx, "scope1", far)
	require.NoError(t, err)
	require.Nil(t, m)

	m, err = idx.Nearest(ctx, "scope3", base)
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestIndex_NearestFullScan(t *testing.T) {
	ctx := testutil.WithConfigs(testutil.NewMockContext(), func(cfg *config.Configs) {
		cfg.Verification.HammingThreshold = 6
	})
	idx := New(repository.NewMediaHashRepository())

	base := uint64(0x1111_2222_3333_4444)
	require.NoError(t, idx.Insert(ctx, "scope", "s1", base))
	require.NoError(t, idx.Insert(ctx, "scope", "s2", base^0x0000_00ff_0000_0000))

	// 5 bits flipped in every band.
	flipped := base ^ 0x1f00_1f00_1f00_1f00
	m, err := idx.Nearest(ctx, "scope", flipped)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "s1", m.SubmissionID)
	require.Equal(t, 20, m.Distance)
	require.False(t, IsDuplicate(ctx, m))

	m, err = idx.Nearest(ctx, "scope", base^0b111111)
	require.NoError(t, err)
	require.Equal(t, "s1", m.SubmissionID)
	require.Equal(t, 6, m.Distance)
	require.True(t, IsDuplicate(ctx, m))
}
