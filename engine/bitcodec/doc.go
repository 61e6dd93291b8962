// Package bitcodec contains the compact bit level codecs of the avatar protocol.
//
// All functions are pure. Pack functions write into the head of the given buffer and return
// the number of bytes written; Unpack functions read from the head of the buffer and return
// the decoded value and the number of bytes consumed. Buffers must be large enough; callers
// (usually netutil.Packet) reserve the space before packing.
package bitcodec
