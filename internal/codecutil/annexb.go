// Package codecutil inspects Annex-B elementary streams so the pipeline can
// tag packets without decoding them.
package codecutil

import "bytes"

// H.264 NAL unit types
const (
	NALUnitTypeIDR = 5
	NALUnitTypeSPS = 7
	NALUnitTypePPS = 8
)

// HEVC NAL unit types
const (
	HEVCNALUnitTypeIDRWRADL = 19
	HEVCNALUnitTypeIDRNLP   = 20
	HEVCNALUnitTypeVPS      = 32
	HEVCNALUnitTypeSPS      = 33
	HEVCNALUnitTypePPS      = 34
)

// AnnexB start codes
var (
	StartCode4 = []byte{0x00, 0x00, 0x00, 0x01}
	StartCode3 = []byte{0x00, 0x00, 0x01}
)

// IsAnnexB detects if data is in Annex-B format by checking for a start code
func IsAnnexB(data []byte) bool {
	if len(data) >= 4 && bytes.Equal(data[0:4], StartCode4) {
		return true
	}
	return len(data) >= 3 && bytes.Equal(data[0:3], StartCode3)
}

// SplitNALUs splits Annex-B data into its NAL units, start codes stripped.
// Bytes before the first start code are ignored.
func SplitNALUs(data []byte) [][]byte {
	var nalus [][]byte

	offset := 0
	nalStart := -1
	for offset < len(data) {
		startCodeLen := 0
		if offset+4 <= len(data) && bytes.Equal(data[offset:offset+4], StartCode4) {
			startCodeLen = 4
		} else if offset+3 <= len(data) && bytes.Equal(data[offset:offset+3], StartCode3) {
			startCodeLen = 3
		} else {
			offset++
			continue
		}

		if nalStart >= 0 && offset > nalStart {
			nalus = append(nalus, data[nalStart:offset])
		}
		offset += startCodeLen
		nalStart = offset
	}
	if nalStart >= 0 && nalStart < len(data) {
		nalus = append(nalus, data[nalStart:])
	}
	return nalus
}

// h264NALType returns the type from an H.264 NAL header (lower 5 bits)
func h264NALType(nalu []byte) uint8 {
	return nalu[0] & 0x1F
}

// hevcNALType returns the type from an HEVC NAL header (bits 1-6 of byte 0)
func hevcNALType(nalu []byte) uint8 {
	return (nalu[0] >> 1) & 0x3F
}

// ContainsKeyframe reports whether the Annex-B data carries an IDR NAL unit.
// hevc selects the HEVC NAL header layout; false means H.264.
func ContainsKeyframe(data []byte, hevc bool) bool {
	for _, nalu := range SplitNALUs(data) {
		if len(nalu) == 0 {
			continue
		}
		if hevc {
			t := hevcNALType(nalu)
			if t == HEVCNALUnitTypeIDRWRADL || t == HEVCNALUnitTypeIDRNLP {
				return true
			}
		} else if h264NALType(nalu) == NALUnitTypeIDR {
			return true
		}
	}
	return false
}

// ContainsParameterSets reports whether the Annex-B data carries decoder
// configuration (SPS/PPS, plus VPS for HEVC)
func ContainsParameterSets(data []byte, hevc bool) bool {
	for _, nalu := range SplitNALUs(data) {
		if len(nalu) == 0 {
			continue
		}
		if hevc {
			switch hevcNALType(nalu) {
			case HEVCNALUnitTypeVPS, HEVCNALUnitTypeSPS, HEVCNALUnitTypePPS:
				return true
			}
		} else {
			switch h264NALType(nalu) {
			case NALUnitTypeSPS, NALUnitTypePPS:
				return true
			}
		}
	}
	return false
}

// ExtractParameterSets returns the SPS and PPS NAL units (start codes
// stripped), or nil for any that is absent. H.264 only.
func ExtractParameterSets(data []byte) (sps, pps []byte) {
	for _, nalu := range SplitNALUs(data) {
		if len(nalu) == 0 {
			continue
		}
		switch h264NALType(nalu) {
		case NALUnitTypeSPS:
			if sps == nil {
				sps = nalu
			}
		case NALUnitTypePPS:
			if pps == nil {
				pps = nalu
			}
		}
		if sps != nil && pps != nil {
			return sps, pps
		}
	}
	return sps, pps
}
