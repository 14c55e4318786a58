package tray

import "encoding/binary"

// platformIcon wraps a PNG in a single-image ICO container, which the
// Windows tray requires.
func platformIcon(pngData []byte) []byte {
	out := make([]byte, 22, 22+len(pngData))
	binary.LittleEndian.PutUint16(out[2:], 1) // type: icon
	binary.LittleEndian.PutUint16(out[4:], 1) // count
	// Width and height of 0 mean 256; 44 fits in a byte.
	out[6], out[7] = 44, 44
	binary.LittleEndian.PutUint16(out[10:], 1)  // planes
	binary.LittleEndian.PutUint16(out[12:], 32) // bpp
	binary.LittleEndian.PutUint32(out[14:], uint32(len(pngData)))
	binary.LittleEndian.PutUint32(out[18:], 22)
	return append(out, pngData...)
}
