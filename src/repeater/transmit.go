package repeater

/*------------------------------------------------------------------
 *
 * Purpose:   	Put together what goes out over the air.
 *
 * Description:	Every transmission starts with lead silence so the radio
 *		is fully keyed before anything matters, and ends with hang
 *		silence so the tail isn't clipped.  The playback side plays
 *		buffers back to back and adds nothing of its own, so all
 *		silence is explicit zeros here.
 *
 *			lead | message | [pre-ID gap | ID] | hang
 *
 *---------------------------------------------------------------*/

// IDDue decides whether a transmission must carry the station ID.
//
// With no ID sent yet it always does.  Otherwise it does when the
// transmission, starting at msgEnd and txLen samples long without an ID,
// would end at or beyond interval samples after the last ID ended.
func IDDue(haveID bool, lastIDEnd uint64, msgEnd uint64, txLen int, interval uint64) bool {
	if !haveID {
		return true
	}
	return msgEnd+uint64(txLen) >= lastIDEnd+interval
}

type transmitter struct {
	lead  int
	preID int
	hang  int
	id    []float32
}

// plainLen is the length of a transmission of n message samples without ID.
func (t *transmitter) plainLen(n int) int {
	return t.lead + n + t.hang
}

// build returns the transmit buffer and the offset just past the ID, or
// just past the message when there is no ID.
func (t *transmitter) build(message []float32, withID bool) ([]float32, int) {
	var n = t.plainLen(len(message))
	if withID {
		n += t.preID + len(t.id)
	}

	var tx = make([]float32, n)
	var pos = t.lead
	pos += copy(tx[pos:], message)
	if withID {
		pos += t.preID
		pos += copy(tx[pos:], t.id)
	}
	return tx, pos
}

// idOnly is a stand-alone identification: lead, ID, hang.
func (t *transmitter) idOnly() ([]float32, int) {
	var tx = make([]float32, t.lead+len(t.id)+t.hang)
	copy(tx[t.lead:], t.id)
	return tx, t.lead + len(t.id)
}
