// Package console transfers a FlashLog image over a serial console.
//
// The stream is a sequence of frames, each led by a sequence number so the
// receiver can detect lost bytes. There's no retransmission: a transfer
// with a sequence error or a CRC mismatch is discarded and repeated.
//
//	sync:   0xFF seq
//	frame:  seq code|len<<4 [len] data
//
// len is 0-6 inline; 7 means a length byte (< 0x80) follows. A dump is
// sync, Begin, Data..., End.
package console
