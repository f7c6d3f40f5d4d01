package credits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_NoMarker(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Extract("Fix pagination off-by-one in the query builder."))
	assert.Empty(t, Extract(""))
}

func TestExtract_MentionList(t *testing.T) {
	t.Parallel()

	got := Extract("Improve caching.\n\nProps @a, @b. See #1234 for background.")

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestExtract_BareNames(t *testing.T) {
	t.Parallel()

	got := Extract("Props alice, bob.marley, carol-w.")

	assert.Equal(t, []string{"alice", "bob.marley", "carol-w"}, got)
}

func TestExtract_TerminatesAtSentenceEnd(t *testing.T) {
	t.Parallel()

	// "Merges" after the closing period is prose, not a credit.
	got := Extract("Props dmsnell, jonsurrell. Merges [56711] to the 6.3 branch.")

	assert.Equal(t, []string{"dmsnell", "jonsurrell"}, got)
}

func TestExtract_CaseInsensitiveMarker(t *testing.T) {
	t.Parallel()

	got := Extract("props westonruter.")

	assert.Equal(t, []string{"westonruter"}, got)
}

func TestExtract_DedupCaseInsensitive(t *testing.T) {
	t.Parallel()

	got := Extract("Props SergeyBiryukov, sergeybiryukov, Otto42.")

	assert.Equal(t, []string{"SergeyBiryukov", "Otto42"}, got)
}

func TestExtract_MultipleMarkersUnioned(t *testing.T) {
	t.Parallel()

	msg := "First pass.\nProps alice.\n\nFollow-up fixes.\nProps bob, alice."

	got := Extract(msg)

	assert.Equal(t, []string{"alice", "bob"}, got)
}

func TestExtract_StopsAtNonUsernameToken(t *testing.T) {
	t.Parallel()

	got := Extract("Props alice, (and many testers)")

	assert.Equal(t, []string{"alice"}, got)
}

func TestExtract_MarkerInsideWordIgnored(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Extract("Update the uprops table for Unicode 15."))
}

func TestExtract_OrderIsFirstAppearance(t *testing.T) {
	t.Parallel()

	got := Extract("Props zeta, alpha, mid.")

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, got)
}
