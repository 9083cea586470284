// Package salts extracts replay-salt identifiers from recovered Valve replay
// URLs.
//
// Replay downloads follow a fixed template:
//
//	http://replay<cluster_id>.valve.net/<app_id>/<match_id>_<salt>.meta.bz2
//	http://replay<cluster_id>.valve.net/<app_id>/<match_id>_<salt>.dem.bz2
//
// The .meta.bz2 suffix carries the metadata salt, .dem.bz2 the replay salt.
// Exactly one of the two is set per record.
package salts

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxMatchID is the sanity ceiling on match identifiers. Anything above it is
// noise, not a real match, and must never reach the collector.
const MaxMatchID uint64 = 100_000_000

const (
	hostPrefix   = "http://replay"
	hostSuffix   = ".valve.net/"
	metaSuffix   = ".meta.bz2"
	replaySuffix = ".dem.bz2"
)

// Salts holds the identifiers the collector needs to fetch one match's
// metadata or replay from the CDN.
type Salts struct {
	MatchID      uint64  `json:"match_id"`
	ClusterID    uint32  `json:"cluster_id"`
	MetadataSalt *uint32 `json:"metadata_salt"`
	ReplaySalt   *uint32 `json:"replay_salt"`
}

// IsMetadata reports whether this record carries the metadata salt
func (s *Salts) IsMetadata() bool {
	return s.MetadataSalt != nil
}

func (s *Salts) String() string {
	kind := "replay"
	salt := s.ReplaySalt
	if s.IsMetadata() {
		kind = "metadata"
		salt = s.MetadataSalt
	}
	if salt == nil {
		return fmt.Sprintf("match %d cluster %d (no salt)", s.MatchID, s.ClusterID)
	}
	return fmt.Sprintf("match %d cluster %d %s salt %d", s.MatchID, s.ClusterID, kind, *salt)
}

// FromURL parses a recovered URL against the replay template. Any deviation
// at any step yields no record; that is expected for almost all traffic and
// is not an error.
func FromURL(url string) (*Salts, bool) {
	// Query strings are transport noise; the identifiers live in the path.
	url, _, _ = strings.Cut(url, "?")

	rest, ok := strings.CutPrefix(url, hostPrefix)
	if !ok {
		return nil, false
	}

	clusterStr, remaining, ok := strings.Cut(rest, hostSuffix)
	if !ok {
		return nil, false
	}

	slash := strings.LastIndex(remaining, "/")
	if slash < 0 {
		return nil, false
	}
	name := remaining[slash+1:]

	var isMetadata bool
	token, ok := strings.CutSuffix(name, metaSuffix)
	if ok {
		isMetadata = true
	} else if token, ok = strings.CutSuffix(name, replaySuffix); !ok {
		return nil, false
	}

	matchStr, saltStr, ok := strings.Cut(token, "_")
	if !ok {
		return nil, false
	}

	clusterID, err := strconv.ParseUint(clusterStr, 10, 32)
	if err != nil {
		return nil, false
	}
	matchID, err := strconv.ParseUint(matchStr, 10, 64)
	if err != nil {
		return nil, false
	}
	salt64, err := strconv.ParseUint(saltStr, 10, 32)
	if err != nil {
		return nil, false
	}
	salt := uint32(salt64)

	s := &Salts{
		MatchID:   matchID,
		ClusterID: uint32(clusterID),
	}
	if isMetadata {
		s.MetadataSalt = &salt
	} else {
		s.ReplaySalt = &salt
	}
	return s, true
}
