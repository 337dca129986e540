// Package spk confirms that a JPL planetary ephemeris (de421.bsp or
// compatible) is present and structurally valid. The core never evaluates a
// planetary position — every orbit it propagates is Earth-centered — so only
// the DAF/SPK file-header parse is kept from the original ephemeris reader;
// Chebyshev segment evaluation and body-chain resolution have no caller here.
package spk

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

const recordLen = 1024

// Header describes the DAF/SPK file record: the array dimensions and the
// forward pointer into the summary record chain. Its presence (and count of
// segment summaries) is all C0 needs to treat the ephemeris file as valid.
type Header struct {
	InternalName  string
	NumDoubles    int // ND
	NumIntegers   int // NI
	SegmentCount  int
}

// Open reads and validates a DAF/SPK file's header and summary record chain,
// without decoding any segment's Chebyshev coefficients.
func Open(filename string) (*Header, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("spk: opening %s: %w", filename, err)
	}
	defer f.Close()

	fileRec := make([]byte, recordLen)
	if _, err := f.Read(fileRec); err != nil {
		return nil, fmt.Errorf("spk: reading file record: %w", err)
	}

	locidw := string(fileRec[0:8])
	if locidw != "DAF/SPK " {
		return nil, fmt.Errorf("spk: not an SPK file: got %q", locidw)
	}

	nd := int(binary.LittleEndian.Uint32(fileRec[8:12]))
	ni := int(binary.LittleEndian.Uint32(fileRec[12:16]))
	fward := int(binary.LittleEndian.Uint32(fileRec[76:80]))
	internalName := string(fileRec[16:76])

	summaryDoubles := nd + (ni+1)/2
	summaryBytes := summaryDoubles * 8

	count := 0
	recNum := fward
	for recNum != 0 {
		offset := int64(recNum-1) * recordLen
		if _, err := f.Seek(offset, 0); err != nil {
			return nil, fmt.Errorf("spk: seeking summary record %d: %w", recNum, err)
		}
		rec := make([]byte, recordLen)
		if _, err := f.Read(rec); err != nil {
			return nil, fmt.Errorf("spk: reading summary record %d: %w", recNum, err)
		}

		nextRec := int(bitsToFloat(rec[0:8]))
		nSummaries := int(bitsToFloat(rec[16:24]))
		if nSummaries < 0 || 24+nSummaries*summaryBytes > recordLen {
			return nil, fmt.Errorf("spk: malformed summary record %d (nSummaries=%d)", recNum, nSummaries)
		}
		count += nSummaries

		if nextRec == 0 {
			break
		}
		recNum = nextRec
	}

	if count == 0 {
		return nil, fmt.Errorf("spk: %s has no ephemeris segments", filename)
	}

	return &Header{
		InternalName: internalName,
		NumDoubles:   nd,
		NumIntegers:  ni,
		SegmentCount: count,
	}, nil
}

func bitsToFloat(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
