package light

import (
	"encoding/hex"

	"github.com/rs/zerolog/log"

	"github.com/ledstack/ledwifi/pkg/protocol"
)

// framer reassembles the device's arbitrary byte chunks into discrete
// messages, strictly in arrival order. It asks the codec how many bytes
// the next message needs and waits until that many are buffered.
type framer struct {
	dialect protocol.Dialect
	buf     []byte
}

func newFramer(d protocol.Dialect) *framer {
	return &framer{dialect: d}
}

// Feed appends a chunk and returns every complete message now available.
// Envelopes are stripped here so downstream classification always sees
// inner messages. A prefix no known message can start discards the buffer;
// the stream has no resynchronization marker, so the next device reply
// realigns it.
func (f *framer) Feed(chunk []byte) [][]byte {
	f.buf = append(f.buf, chunk...)

	var msgs [][]byte
	for {
		need, ok := f.dialect.NextMessageLength(f.buf)
		if !ok {
			log.Warn().
				Str("dialect", f.dialect.String()).
				Str("buffer", hex.EncodeToString(f.buf)).
				Msg("unrecognized message prefix, discarding buffer")
			f.buf = nil
			return msgs
		}
		if len(f.buf) < need {
			return msgs
		}

		msg := make([]byte, need)
		copy(msg, f.buf[:need])
		f.buf = f.buf[need:]

		if protocol.IsValidOuterMessage(msg) {
			msg = protocol.ExtractInnerMessage(msg)
		}
		msgs = append(msgs, msg)
	}
}
