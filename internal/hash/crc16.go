// Package hash maps keys to cluster hash slots.
package hash

import "strings"

// SlotCount is the fixed number of hash slots in the cluster.
const SlotCount = 16384

// CRC16 implements CRC16-CCITT (XModem), the checksum the cluster protocol
// uses for key placement.
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// KeySlot returns the hash slot a key belongs to. If the key contains a
// hash tag ("{tag}..."), only the tag is hashed so related keys can be
// pinned to one slot.
func KeySlot(key string) uint16 {
	if open := strings.IndexByte(key, '{'); open >= 0 {
		if close := strings.IndexByte(key[open+1:], '}'); close >= 0 {
			tag := key[open+1 : open+1+close]
			return CRC16([]byte(tag)) % SlotCount
		}
	}
	return CRC16([]byte(key)) % SlotCount
}
