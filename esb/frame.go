package esb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/request"
)

// Frame is the wire shape of one bus message: the 4-tuple
// (source_addr, dest_addr, bus_tag, payload) from spec.md §6.
type Frame struct {
	Source  address.ServiceAddress
	Dest    address.ServiceAddress
	Bus     Bus
	Payload request.Request
}

// encodeFrame serializes a Frame and length-prefixes it so that frames can
// be told apart on a streaming net.Conn.
func encodeFrame(w io.Writer, f Frame) error {
	var body bytes.Buffer
	if err := body.WriteByte(byte(f.Bus)); err != nil {
		return err
	}
	if err := f.Source.Encode(&body); err != nil {
		return err
	}
	if err := f.Dest.Encode(&body); err != nil {
		return err
	}
	if err := body.WriteByte(byte(f.Payload.Type())); err != nil {
		return err
	}
	if err := f.Payload.Encode(&body); err != nil {
		return err
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(body.Len()))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// decodeFrame reads one length-prefixed Frame from r.
func decodeFrame(r io.Reader) (Frame, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Frame{}, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, err
	}
	br := bytes.NewReader(body)

	var busByte [1]byte
	if _, err := io.ReadFull(br, busByte[:]); err != nil {
		return Frame{}, err
	}

	source, err := address.Decode(br)
	if err != nil {
		return Frame{}, err
	}
	dest, err := address.Decode(br)
	if err != nil {
		return Frame{}, err
	}

	var typeByte [1]byte
	if _, err := io.ReadFull(br, typeByte[:]); err != nil {
		return Frame{}, err
	}
	payload, err := request.New(request.Type(typeByte[0]))
	if err != nil {
		return Frame{}, fmt.Errorf("esb: decode frame: %w", err)
	}
	if err := payload.Decode(br); err != nil {
		return Frame{}, err
	}

	return Frame{Source: source, Dest: dest, Bus: Bus(busByte[0]), Payload: payload}, nil
}
