package protocol

// checksum computes the trailing checksum byte for checksummed dialects:
// the sum of all payload bytes modulo 256.
func checksum(payload []byte) byte {
	var sum byte
	for _, b := range payload {
		sum += b
	}
	return sum
}

// appendChecksum returns msg with its checksum byte appended.
func appendChecksum(msg []byte) []byte {
	return append(msg, checksum(msg))
}

// checksumOK reports whether the last byte of msg equals the checksum of
// everything before it. Messages shorter than two bytes never validate.
func checksumOK(msg []byte) bool {
	if len(msg) < 2 {
		return false
	}
	return msg[len(msg)-1] == checksum(msg[:len(msg)-1])
}
