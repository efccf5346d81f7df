package recording

/*------------------------------------------------------------------
 *
 * Purpose:   	Minimal Ogg container, RFC 3533.
 *
 * Description: Just enough to write one logical Opus stream: packets
 *		are packed into pages with a lacing table and checksum.
 *		Reading goes through libopusfile.
 *
 *		Page header, all little endian:
 *
 *		  0  "OggS"
 *		  4  version, always 0
 *		  5  header type: 1 continued, 2 first page, 4 last page
 *		  6  granule position, int64
 *		 14  stream serial number
 *		 18  page sequence number
 *		 22  CRC32 of the whole page with this field zeroed
 *		 26  number of segments, then that many lacing values
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	oggHeaderLen   = 27
	oggMaxSegments = 255
	oggMaxPageData = 4096 // flush a page once it holds this much

	oggBOS = 0x02
	oggEOS = 0x04
)

var oggCRCTable = func() [256]uint32 {
	var table [256]uint32
	for i := range table {
		var r = uint32(i) << 24
		for range 8 {
			if r&0x80000000 != 0 {
				r = r<<1 ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		table[i] = r
	}
	return table
}()

// oggCRC is CRC-32 with polynomial 0x04c11db7, zero initial value and no
// bit reflection.  hash/crc32 only does the reflected form.
func oggCRC(crc uint32, data []byte) uint32 {
	for _, b := range data {
		crc = crc<<8 ^ oggCRCTable[byte(crc>>24)^b]
	}
	return crc
}

type oggWriter struct {
	w      io.Writer
	serial uint32
	seq    uint32

	lacing  []byte
	body    []byte
	granule int64
	started bool
}

func newOggWriter(w io.Writer, serial uint32) *oggWriter {
	return &oggWriter{w: w, serial: serial}
}

// WritePacket adds one packet.  granule is the position at the end of
// this packet.  flush forces the page out, eos marks the end of stream.
func (o *oggWriter) WritePacket(packet []byte, granule int64, flush, eos bool) error {
	var segs = len(packet)/255 + 1
	if segs > oggMaxSegments {
		return fmt.Errorf("ogg packet of %d bytes is too large", len(packet))
	}
	if len(o.lacing)+segs > oggMaxSegments {
		if err := o.flushPage(false); err != nil {
			return err
		}
	}

	for n := len(packet); ; n -= 255 {
		if n < 255 {
			o.lacing = append(o.lacing, byte(n))
			break
		}
		o.lacing = append(o.lacing, 255)
	}
	o.body = append(o.body, packet...)
	o.granule = granule

	if flush || eos || len(o.body) >= oggMaxPageData {
		return o.flushPage(eos)
	}
	return nil
}

func (o *oggWriter) flushPage(eos bool) error {
	if len(o.lacing) == 0 && !eos {
		return nil
	}

	var page = make([]byte, oggHeaderLen+len(o.lacing)+len(o.body))
	copy(page, "OggS")
	page[4] = 0
	if !o.started {
		page[5] |= oggBOS
	}
	if eos {
		page[5] |= oggEOS
	}
	binary.LittleEndian.PutUint64(page[6:], uint64(o.granule))
	binary.LittleEndian.PutUint32(page[14:], o.serial)
	binary.LittleEndian.PutUint32(page[18:], o.seq)
	page[26] = byte(len(o.lacing))
	copy(page[oggHeaderLen:], o.lacing)
	copy(page[oggHeaderLen+len(o.lacing):], o.body)
	binary.LittleEndian.PutUint32(page[22:], oggCRC(0, page))

	if _, err := o.w.Write(page); err != nil {
		return err
	}

	o.started = true
	o.seq++
	o.lacing = o.lacing[:0]
	o.body = o.body[:0]
	return nil
}
