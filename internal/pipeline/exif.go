package pipeline

import (
	"bytes"
	"encoding/binary"
)

// ExifInfo summarizes the metadata signal for one file. Stripped metadata is
// a strong manipulation signal: most AI generators emit no EXIF at all.
type ExifInfo struct {
	Stripped  bool
	Camera    string
	Software  string
	DateTaken string
	GPS       bool
}

// IFD0 tags we care about.
const (
	tagModel    = 0x0110
	tagSoftware = 0x0131
	tagDateTime = 0x0132
	tagGPSIFD   = 0x8825
)

var (
	jpegSOI = []byte{0xFF, 0xD8}
	pngSig  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	exifHdr = []byte("Exif\x00\x00")
)

// stripped is the ExifInfo for media with no usable metadata. Any parse
// anomaly collapses to it; a broken EXIF block must never fail the pipeline.
func stripped() ExifInfo {
	return ExifInfo{Stripped: true}
}

// ExtractExif locates and parses the EXIF block of a JPEG or PNG payload.
// Unknown container formats are reported as stripped.
func ExtractExif(data []byte) ExifInfo {
	switch {
	case bytes.HasPrefix(data, jpegSOI):
		return parseJPEG(data)
	case bytes.HasPrefix(data, pngSig):
		return parsePNG(data)
	default:
		return stripped()
	}
}

// parseJPEG walks JPEG segments looking for an APP1 Exif payload.
func parseJPEG(data []byte) ExifInfo {
	pos := len(jpegSOI)
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return stripped()
		}
		marker := data[pos+1]

		// Start of scan: no metadata past this point.
		if marker == 0xDA {
			return stripped()
		}

		segLen := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if segLen < 2 || pos+2+segLen > len(data) {
			return stripped()
		}
		payload := data[pos+4 : pos+2+segLen]

		if marker == 0xE1 && bytes.HasPrefix(payload, exifHdr) {
			return parseTIFF(payload[len(exifHdr):])
		}

		pos += 2 + segLen
	}
	return stripped()
}

// parsePNG walks PNG chunks looking for an eXIf chunk.
func parsePNG(data []byte) ExifInfo {
	pos := len(pngSig)
	for pos+8 <= len(data) {
		chunkLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		chunkType := string(data[pos+4 : pos+8])
		body := pos + 8
		if chunkLen < 0 || body+chunkLen > len(data) {
			return stripped()
		}

		if chunkType == "eXIf" {
			return parseTIFF(data[body : body+chunkLen])
		}
		if chunkType == "IEND" {
			return stripped()
		}

		pos = body + chunkLen + 4 // skip CRC
	}
	return stripped()
}

// parseTIFF reads the IFD0 entries of a TIFF-structured EXIF block.
func parseTIFF(tiff []byte) ExifInfo {
	if len(tiff) < 8 {
		return stripped()
	}

	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return stripped()
	}
	if order.Uint16(tiff[2:4]) != 42 {
		return stripped()
	}

	ifdOff := int(order.Uint32(tiff[4:8]))
	if ifdOff+2 > len(tiff) {
		return stripped()
	}

	entryCount := int(order.Uint16(tiff[ifdOff : ifdOff+2]))
	info := ExifInfo{}
	found := false

	for i := 0; i < entryCount; i++ {
		entry := ifdOff + 2 + i*12
		if entry+12 > len(tiff) {
			break
		}

		tag := order.Uint16(tiff[entry : entry+2])
		typ := order.Uint16(tiff[entry+2 : entry+4])
		count := int(order.Uint32(tiff[entry+4 : entry+8]))

		switch tag {
		case tagGPSIFD:
			info.GPS = true
			found = true
		case tagModel, tagSoftware, tagDateTime:
			if typ != 2 { // ASCII
				continue
			}
			val := asciiValue(tiff, order, entry, count)
			if val == "" {
				continue
			}
			found = true
			switch tag {
			case tagModel:
				info.Camera = val
			case tagSoftware:
				info.Software = val
			case tagDateTime:
				info.DateTaken = val
			}
		}
	}

	if !found {
		return stripped()
	}
	return info
}

// asciiValue reads an ASCII IFD entry: inline when it fits in the 4-byte
// value slot, otherwise at the offset the slot points to.
func asciiValue(tiff []byte, order binary.ByteOrder, entry, count int) string {
	if count <= 0 {
		return ""
	}

	var raw []byte
	if count <= 4 {
		raw = tiff[entry+8 : entry+8+count]
	} else {
		off := int(order.Uint32(tiff[entry+8 : entry+12]))
		if off < 0 || off+count > len(tiff) {
			return ""
		}
		raw = tiff[off : off+count]
	}

	return string(bytes.TrimRight(raw, "\x00"))
}
