//go:build property

// Randomized invariant checks for the capture pipeline. These run longer
// than the unit suite and are kept behind the property tag:
//
//	go test -tags property ./test/property/
package property

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/deadlock-api/deadlock-ingest/internal/httpparse"
	"github.com/deadlock-api/deadlock-ingest/internal/packet"
	"github.com/deadlock-api/deadlock-ingest/internal/salts"
	"github.com/deadlock-api/deadlock-ingest/internal/stream"
)

func TestBufferNeverExceedsCap(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("buffer length stays under its cap for any append sequence", prop.ForAll(
		func(capBytes int, chunks [][]byte) bool {
			buf := stream.NewBuffer(capBytes)
			for _, chunk := range chunks {
				buf.Append(chunk)
				if buf.Len() > capBytes {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 4096),
		gen.SliceOf(gen.SliceOfN(64, gen.UInt8())),
	))

	properties.TestingRun(t)
}

func TestStreamIDRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("the 5-tuple parsed from a crafted IPv4 frame matches its inputs", prop.ForAll(
		func(srcIP, dstIP uint32, srcPort, dstPort uint16, payload []byte) bool {
			frame := make([]byte, 40, 40+len(payload))
			frame[0] = 0x45
			frame[9] = 6
			binary.BigEndian.PutUint32(frame[12:16], srcIP)
			binary.BigEndian.PutUint32(frame[16:20], dstIP)
			binary.BigEndian.PutUint16(frame[20:22], srcPort)
			binary.BigEndian.PutUint16(frame[22:24], dstPort)
			frame[32] = 5 << 4
			frame = append(frame, payload...)

			id, got, ok := packet.Parse(frame)
			if !ok {
				return false
			}
			var src, dst [4]byte
			binary.BigEndian.PutUint32(src[:], srcIP)
			binary.BigEndian.PutUint32(dst[:], dstIP)
			return id.SrcIP.As4() == src &&
				id.DstIP.As4() == dst &&
				id.SrcPort == srcPort &&
				id.DstPort == dstPort &&
				id.Protocol == 6 &&
				string(got) == string(payload)
		},
		gen.UInt32(),
		gen.UInt32(),
		gen.UInt16(),
		gen.UInt16(),
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}

func TestFragmentationEquivalence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("a request split at any point yields the same URL as the whole", prop.ForAll(
		func(matchID uint64, clusterID uint32, salt uint32, cut int) bool {
			request := fmt.Sprintf(
				"GET /1422450/%d_%d.meta.bz2 HTTP/1.1\r\nHost: replay%d.valve.net\r\n\r\n",
				matchID, salt, clusterID)

			whole, wholeOK := httpparse.ExtractURL([]byte(request))
			if !wholeOK {
				return false
			}

			cut = cut % len(request)
			buf := stream.NewBuffer(16 * 1024)
			buf.Append([]byte(request[:cut]))
			if _, ok := httpparse.ExtractURL(buf.Bytes()); ok {
				// A cut inside the Host line can resolve early to a
				// truncated host; such URLs fail identifier parsing and
				// the equivalence claim does not cover them.
				return true
			}
			buf.Append([]byte(request[cut:]))

			url, ok := httpparse.ExtractURL(buf.Bytes())
			return ok && url == whole
		},
		gen.UInt64Range(1, 100_000_000),
		gen.UInt32Range(1, 999),
		gen.UInt32(),
		gen.IntRange(0, 1<<20),
	))

	properties.TestingRun(t)
}

func TestSaltURLRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("identifiers formatted into a replay URL parse back unchanged", prop.ForAll(
		func(matchID uint64, clusterID uint32, salt uint32, metadata bool) bool {
			kind := "dem"
			if metadata {
				kind = "meta"
			}
			url := fmt.Sprintf("http://replay%d.valve.net/1422450/%d_%d.%s.bz2",
				clusterID, matchID, salt, kind)

			record, ok := salts.FromURL(url)
			if !ok {
				return false
			}
			if record.MatchID != matchID || record.ClusterID != clusterID {
				return false
			}
			if metadata {
				return record.MetadataSalt != nil && *record.MetadataSalt == salt &&
					record.ReplaySalt == nil
			}
			return record.ReplaySalt != nil && *record.ReplaySalt == salt &&
				record.MetadataSalt == nil
		},
		gen.UInt64Range(0, 1<<40),
		gen.UInt32(),
		gen.UInt32(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
