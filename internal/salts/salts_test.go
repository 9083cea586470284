package salts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromURLMetadata(t *testing.T) {
	s, ok := FromURL("http://replay404.valve.net/1422450/37959196_937530290.meta.bz2")
	require.True(t, ok)

	assert.Equal(t, uint64(37959196), s.MatchID)
	assert.Equal(t, uint32(404), s.ClusterID)
	require.NotNil(t, s.MetadataSalt)
	assert.Equal(t, uint32(937530290), *s.MetadataSalt)
	assert.Nil(t, s.ReplaySalt)
	assert.True(t, s.IsMetadata())
}

func TestFromURLReplay(t *testing.T) {
	s, ok := FromURL("http://replay400.valve.net/1422450/38090632_88648761.dem.bz2")
	require.True(t, ok)

	assert.Equal(t, uint64(38090632), s.MatchID)
	assert.Equal(t, uint32(400), s.ClusterID)
	require.NotNil(t, s.ReplaySalt)
	assert.Equal(t, uint32(88648761), *s.ReplaySalt)
	assert.Nil(t, s.MetadataSalt)
	assert.False(t, s.IsMetadata())
}

func TestFromURLIgnoresQueryString(t *testing.T) {
	plain, ok := FromURL("http://replay404.valve.net/1422450/37959196_937530290.meta.bz2")
	require.True(t, ok)

	withQuery, ok := FromURL("http://replay404.valve.net/1422450/37959196_937530290.meta.bz2?v=2")
	require.True(t, ok)

	assert.Equal(t, plain.MatchID, withQuery.MatchID)
	assert.Equal(t, plain.ClusterID, withQuery.ClusterID)
	assert.Equal(t, *plain.MetadataSalt, *withQuery.MetadataSalt)
}

func TestFromURLRejectsMalformed(t *testing.T) {
	urls := []string{
		"",
		"http://example.com/1422450/37959196_937530290.meta.bz2",
		"https://replay404.valve.net/1422450/37959196_937530290.meta.bz2",
		"http://replay404.valve.net/37959196_937530290.meta.bz2",  // no path segment
		"http://replay404.valve.net/1422450/37959196.meta.bz2",    // no salt separator
		"http://replay404.valve.net/1422450/37959196_1.tar.gz",    // wrong suffix
		"http://replayX.valve.net/1422450/37959196_1.meta.bz2",    // non-numeric cluster
		"http://replay404.valve.net/1422450/abc_1.meta.bz2",       // non-numeric match
		"http://replay404.valve.net/1422450/1_notanumber.dem.bz2", // non-numeric salt
		"http://replay404.valve.net/1422450/1_99999999999.dem.bz2", // salt over u32
	}

	for _, url := range urls {
		if _, ok := FromURL(url); ok {
			t.Errorf("expected %q to be rejected", url)
		}
	}
}

func TestFromURLFoldedHostSpaceRejected(t *testing.T) {
	// A folded Host header leaves a space inside the recovered URL. The
	// extractor tolerates it; the template match here does not.
	_, ok := FromURL("http://replay404 .valve.net/1422450/37959196_1.meta.bz2")
	assert.False(t, ok)
}
